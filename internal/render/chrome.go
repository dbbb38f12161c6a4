package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/farxc/informes-obras/internal/logger"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const mmPerInch = 25.4

// Chrome renders through a headless Chrome driven by rod. One browser serves
// the whole batch.
type Chrome struct {
	browser *rod.Browser
	log     *logger.Logger
}

// NewChrome launches Chrome from bin, or the launcher default when bin is empty.
func NewChrome(ctx context.Context, bin string, appLogger *logger.Logger) (*Chrome, error) {
	const component = "ChromePDF"

	l := launcher.New().Headless(true)
	if bin != "" {
		l = l.Bin(bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	appLogger.Info(component, "Browser connected: controlURL=%s", controlURL)
	return &Chrome{browser: browser, log: appLogger}, nil
}

func (c *Chrome) Render(ctx context.Context, html, outPath string) error {
	const component = "ChromePDF"

	page, err := c.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.SetDocumentContent(html); err != nil {
		return fmt.Errorf("set content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}

	top, bottom, side := 30/mmPerInch, 20/mmPerInch, 4/mmPerInch
	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
		MarginTop:       &top,
		MarginBottom:    &bottom,
		MarginLeft:      &side,
		MarginRight:     &side,
	})
	if err != nil {
		return fmt.Errorf("print pdf: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, stream); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	c.log.Debug(component, "PDF written: path=%s", outPath)
	return nil
}

func (c *Chrome) Close() error {
	return c.browser.Close()
}
