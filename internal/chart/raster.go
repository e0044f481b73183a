package chart

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/chromedp/chromedp"
)

// Rasterize renders svg to PNG in a headless Chrome viewport of the given size.
func Rasterize(ctx context.Context, svg []byte, width, height int) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.WindowSize(width, height),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)
	defer cancelCtx()

	url := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(svg)
	var png []byte
	if err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(url),
		chromedp.FullScreenshot(&png, 100),
	); err != nil {
		return nil, fmt.Errorf("rasterize chart: %w", err)
	}
	return png, nil
}
