package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
)

var errNoPaging = errors.New("anaplan: response has no paging metadata")

// PageScheme describes how a paginated endpoint names its limit and offset
// parameters and where it reports totals.
type PageScheme struct {
	LimitParam  string
	OffsetParam string
	// OffsetBase is added to every offset (1 for SCIM's startIndex).
	OffsetBase int
	// Totals extracts the total item count and the page size the server
	// actually applied from a raw response body.
	Totals func(body []byte) (total, pageSize int, err error)
}

// OffsetPaging is the limit/offset scheme with meta.paging used by the
// integration, transactional, audit and CloudWorks APIs.
var OffsetPaging = PageScheme{
	LimitParam:  "limit",
	OffsetParam: "offset",
	Totals:      metaPagingTotals,
}

// SCIMPaging is the count/startIndex scheme of the SCIM users endpoint.
var SCIMPaging = PageScheme{
	LimitParam:  "count",
	OffsetParam: "startIndex",
	OffsetBase:  1,
	Totals:      scimTotals,
}

// PageQuery describes one paginated fetch.
type PageQuery struct {
	URL       string
	ResultKey string
	Params    url.Values
	// Scheme defaults to OffsetPaging.
	Scheme *PageScheme
	// PageSize overrides the service page size when > 0. Endpoints with
	// their own documented limit (audit events) may exceed MaxPageSize.
	PageSize int
}

// GetPaginated fetches every page of q and returns the items in offset
// order. The first page determines the page size the server enforces; the
// remaining pages are fetched through the service executor with that size.
func (s *Service) GetPaginated(ctx context.Context, q PageQuery) ([]json.RawMessage, error) {
	scheme := OffsetPaging
	if q.Scheme != nil {
		scheme = *q.Scheme
	}

	requested := s.pageSize
	if q.PageSize > 0 {
		requested = q.PageSize
	}

	if q.Params.Has("sort") {
		s.logger.Warn("paginating a sorted result; ordering across pages is only stable for unique sort keys",
			slog.String("url", q.URL),
			slog.String("sort", q.Params.Get("sort")),
		)
	}

	s.logger.Debug("starting paginated fetch",
		slog.String("url", q.URL),
		slog.Int("page_size", requested),
	)

	first, total, actual, err := s.firstPage(ctx, q, scheme, requested)
	if err != nil {
		return nil, err
	}

	if actual <= 0 {
		actual = len(first)
	}

	if total <= actual || actual == 0 {
		s.logger.Debug("all items fit in first page",
			slog.String("url", q.URL),
			slog.Int("total", total),
		)

		return first, nil
	}

	pagesNeeded := (total + actual - 1) / actual
	rest := make([][]json.RawMessage, pagesNeeded-1)

	s.logger.Debug("fetching additional pages",
		slog.String("url", q.URL),
		slog.Int("pages", len(rest)),
		slog.Int("page_size", actual),
	)

	err = s.exec.Run(ctx, len(rest), func(ctx context.Context, i int) error {
		page, pageErr := s.page(ctx, q, scheme, actual, (i+1)*actual)
		if pageErr != nil {
			return pageErr
		}

		rest[i] = page

		return nil
	})
	if err != nil {
		return nil, err
	}

	items := make([]json.RawMessage, 0, total)
	items = append(items, first...)

	for _, page := range rest {
		items = append(items, page...)
	}

	s.logger.Debug("completed paginated fetch",
		slog.String("url", q.URL),
		slog.Int("items", len(items)),
	)

	return items, nil
}

// ListAll fetches every page of q and decodes each item into T.
func ListAll[T any](ctx context.Context, s *Service, q PageQuery) ([]T, error) {
	raw, err := s.GetPaginated(ctx, q)
	if err != nil {
		return nil, err
	}

	return DecodeAll[T](raw)
}

// DecodeAll decodes each raw JSON item into T.
func DecodeAll[T any](raw []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raw))

	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("anaplan: decoding item: %w", err)
		}

		out = append(out, v)
	}

	return out, nil
}

func (s *Service) firstPage(
	ctx context.Context, q PageQuery, scheme PageScheme, requested int,
) ([]json.RawMessage, int, int, error) {
	params := cloneValues(q.Params)
	params.Set(scheme.LimitParam, strconv.Itoa(requested))

	var body json.RawMessage
	if err := s.Get(ctx, q.URL, params, &body); err != nil {
		return nil, 0, 0, err
	}

	items, err := resultItems(body, q.ResultKey)
	if err != nil {
		return nil, 0, 0, err
	}

	total, actual, err := scheme.Totals(body)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("anaplan: paginating %s: %w", q.URL, err)
	}

	if actual < requested && actual != total {
		s.logger.Warn("page size silently truncated by server, using server-enforced size",
			slog.String("url", q.URL),
			slog.Int("requested", requested),
			slog.Int("actual", actual),
		)
	}

	s.logger.Debug("fetched first page",
		slog.String("url", q.URL),
		slog.Int("total", total),
		slog.Int("retrieved", len(items)),
	)

	return items, total, actual, nil
}

func (s *Service) page(
	ctx context.Context, q PageQuery, scheme PageScheme, limit, offset int,
) ([]json.RawMessage, error) {
	params := cloneValues(q.Params)
	params.Set(scheme.LimitParam, strconv.Itoa(limit))
	params.Set(scheme.OffsetParam, strconv.Itoa(offset+scheme.OffsetBase))

	s.logger.Debug("fetching page",
		slog.String("url", q.URL),
		slog.Int("offset", offset),
		slog.Int("limit", limit),
	)

	var body json.RawMessage
	if err := s.Get(ctx, q.URL, params, &body); err != nil {
		return nil, err
	}

	return resultItems(body, q.ResultKey)
}

// resultItems extracts the array under key. A missing key is an empty page.
func resultItems(body []byte, key string) ([]json.RawMessage, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("anaplan: decoding page: %w", err)
	}

	raw, ok := envelope[key]
	if !ok || string(raw) == "null" {
		return []json.RawMessage{}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("anaplan: decoding %q: %w", key, err)
	}

	return items, nil
}

func metaPagingTotals(body []byte) (int, int, error) {
	var resp struct {
		Meta struct {
			Paging *struct {
				TotalSize       int `json:"totalSize"`
				CurrentPageSize int `json:"currentPageSize"`
			} `json:"paging"`
		} `json:"meta"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, 0, err
	}

	if resp.Meta.Paging == nil {
		return 0, 0, errNoPaging
	}

	return resp.Meta.Paging.TotalSize, resp.Meta.Paging.CurrentPageSize, nil
}

func scimTotals(body []byte) (int, int, error) {
	var resp struct {
		TotalResults *int `json:"totalResults"`
		ItemsPerPage int  `json:"itemsPerPage"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, 0, err
	}

	if resp.TotalResults == nil {
		return 0, 0, errNoPaging
	}

	return *resp.TotalResults, resp.ItemsPerPage, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+2)
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}

	return out
}
