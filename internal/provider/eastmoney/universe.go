package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// allAShareFS selects the SZ main/ChiNext and SH main/STAR boards. Beijing
// listings are left out: canonical symbols carry only .SZ and .SH suffixes.
const allAShareFS = "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23"

// ListAll returns the bare exchange codes of every listed A-share.
func (c *Client) ListAll(ctx context.Context) ([]string, error) {
	codes, err := c.listCodes(ctx, allAShareFS)
	if err != nil {
		return nil, fmt.Errorf("list a-shares: %w", err)
	}
	return codes, nil
}

// BoardConstituents returns the bare codes of one eastmoney board (BK####).
func (c *Client) BoardConstituents(ctx context.Context, board string) ([]string, error) {
	if board == "" {
		return nil, fmt.Errorf("empty board code")
	}
	codes, err := c.listCodes(ctx, "b:"+board)
	if err != nil {
		return nil, fmt.Errorf("board %s constituents: %w", board, err)
	}
	return codes, nil
}

// listCodes pages through the clist endpoint until a page comes back short,
// empty, or the reported total is reached.
func (c *Client) listCodes(ctx context.Context, fs string) ([]string, error) {
	var codes []string
	total := -1
	for page := 1; page <= maxListPages; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"pn":     strconv.Itoa(page),
				"pz":     strconv.Itoa(listPageSize),
				"po":     "1",
				"np":     "1",
				"fltt":   "2",
				"invt":   "2",
				"fid":    "f12",
				"fs":     fs,
				"fields": "f12",
			}).
			Get(c.listBaseURL + "/api/qt/clist/get")
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("page %d: status %s", page, resp.Status())
		}
		var env clistEnvelope
		if err := json.Unmarshal(resp.Body(), &env); err != nil {
			return nil, fmt.Errorf("page %d: decode: %w", page, err)
		}
		if env.Data == nil || len(env.Data.Diff) == 0 {
			break
		}
		total = env.Data.Total
		for _, row := range env.Data.Diff {
			codes = append(codes, row.Code)
		}
		if len(env.Data.Diff) < listPageSize {
			break
		}
		if total >= 0 && len(codes) >= total {
			break
		}
	}
	return codes, nil
}
