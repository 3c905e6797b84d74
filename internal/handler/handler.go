package handler

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shinyyama/inventory-backend/internal/apperr"
	"github.com/shinyyama/inventory-backend/internal/middleware"
	"github.com/shinyyama/inventory-backend/internal/service"
)

const dateLayout = "2006-01-02"

func currentUser(c echo.Context) (uint64, error) {
	id := middleware.UserID(c)
	if id == 0 {
		return 0, apperr.Unauthorized("ログインが必要です")
	}
	return id, nil
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.BadRequest("IDが不正です")
	}
	return id, nil
}

// parsePage reads page and limit, rejecting values outside 1..10000 and 1..100.
func parsePage(c echo.Context) (service.PageRequest, error) {
	var p service.PageRequest
	fields := map[string]string{}
	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > service.MaxPage {
			fields["page"] = fmt.Sprintf("1以上%d以下で指定してください", service.MaxPage)
		}
		p.Page = n
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > service.MaxPageLimit {
			fields["limit"] = fmt.Sprintf("1以上%d以下で指定してください", service.MaxPageLimit)
		}
		p.Limit = n
	}
	if len(fields) > 0 {
		return p, apperr.Validation(fields)
	}
	return p, nil
}

// queryID reads an optional positive id from the query string.
func queryID(c echo.Context, name string) (*uint64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, apperr.FieldError(name, "IDが不正です")
	}
	return &id, nil
}

type PageResponse[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func toPage[S, T any](p service.PageResult[S], conv func(*S) T) PageResponse[T] {
	out := PageResponse[T]{
		Items:      make([]T, 0, len(p.Items)),
		Total:      p.Total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages,
	}
	for i := range p.Items {
		out.Items = append(out.Items, conv(&p.Items[i]))
	}
	return out
}

// Date accepts "2006-01-02" or RFC 3339 timestamps.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func datePtr(d *Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func optionalDate(o service.Optional[Date]) service.Optional[time.Time] {
	if !o.Set {
		return service.Optional[time.Time]{}
	}
	if o.Value == nil {
		return service.Null[time.Time]()
	}
	return service.Some(o.Value.Time)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
