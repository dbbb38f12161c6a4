package sheets

import (
	"context"
	"strings"
	"sync"

	"github.com/farxc/informes-obras/internal/logger"
	"github.com/farxc/informes-obras/internal/report/types"
	"github.com/farxc/informes-obras/internal/report/utils"
)

var newsCandidates = struct {
	id, title, date, summary, link, image []string
}{
	id:      []string{"id_obra", "obra", "id"},
	title:   []string{"titulo", "title", "noticia"},
	date:    []string{"fecha", "date"},
	summary: []string{"resumen", "descripcion", "bajada", "texto"},
	link:    []string{"link", "url", "enlace"},
	image:   []string{"imagen", "foto", "imagen_url"},
}

type NewsConfig struct {
	SpreadsheetID string
	Range         string
}

// News serves the editorial items of each project. The sheet is read on the
// first successful call and kept in memory for the rest of the batch.
type News struct {
	reader ValuesReader
	cfg    NewsConfig
	log    *logger.Logger

	mu     sync.Mutex
	loaded bool
	byID   map[string][]types.NewsItem
}

func NewNews(reader ValuesReader, cfg NewsConfig, appLogger *logger.Logger) *News {
	return &News{reader: reader, cfg: cfg, log: appLogger}
}

// ForProject returns the news linked to a project in sheet order.
func (n *News) ForProject(ctx context.Context, projectID string) ([]types.NewsItem, error) {
	if n == nil || n.reader == nil || n.cfg.SpreadsheetID == "" {
		return []types.NewsItem{}, nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.loaded {
		if err := n.load(ctx); err != nil {
			return []types.NewsItem{}, err
		}
	}

	items := n.byID[strings.TrimSpace(projectID)]
	if items == nil {
		return []types.NewsItem{}, nil
	}
	return items, nil
}

func (n *News) load(ctx context.Context) error {
	const component = "NewsFeed"

	values, err := n.reader.Values(ctx, n.cfg.SpreadsheetID, n.cfg.Range)
	if err != nil {
		return err
	}

	n.byID = make(map[string][]types.NewsItem)
	n.loaded = true
	if len(values) == 0 {
		n.log.Warn(component, "News sheet is empty: range=%s", n.cfg.Range)
		return nil
	}

	header := stringRow(values[0])
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = utils.NormalizeColumn(h)
	}
	index := func(candidates []string) int {
		picked := utils.PickFirst(normalized, candidates...)
		if picked == "" {
			return -1
		}
		for i, name := range normalized {
			if name == picked {
				return i
			}
		}
		return -1
	}

	idIdx := index(newsCandidates.id)
	if idIdx < 0 {
		n.log.Warn(component, "News sheet has no project column: headers=%v", header)
		return nil
	}
	titleIdx := index(newsCandidates.title)
	dateIdx := index(newsCandidates.date)
	summaryIdx := index(newsCandidates.summary)
	linkIdx := index(newsCandidates.link)
	imageIdx := index(newsCandidates.image)

	total := 0
	for _, raw := range values[1:] {
		row := stringRow(raw)
		cell := func(i int) string {
			if i < 0 || i >= len(row) {
				return ""
			}
			return row[i]
		}

		id := cell(idIdx)
		if id == "" {
			continue
		}
		item := types.NewsItem{
			Title:   cell(titleIdx),
			Date:    cell(dateIdx),
			Summary: cell(summaryIdx),
			Link:    cell(linkIdx),
			Image:   cell(imageIdx),
		}
		if item.Title == "" && item.Summary == "" {
			continue
		}
		n.byID[id] = append(n.byID[id], item)
		total++
	}

	n.log.Info(component, "News loaded: items=%d projects=%d", total, len(n.byID))
	return nil
}
