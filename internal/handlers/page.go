package handlers

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/nkiryanov/calendar/internal/models"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100

	// Keeps (page-1)*per_page within int
	maxPage = math.MaxInt / maxPerPage

	// per_page value to get everything at once
	perPageAll = -1
)

// Page from 'page' and 'per_page' query params
func parsePage(query url.Values) (models.Page, error) {
	page := models.Page{Number: 1, PerPage: defaultPerPage}

	if v := query.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPage {
			return page, fmt.Errorf("page must be between 1 and %d", maxPage)
		}
		page.Number = n
	}

	if v := query.Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || (n != perPageAll && (n < 1 || n > maxPerPage)) {
			return page, fmt.Errorf("per_page must be between 1 and %d or %d for all", maxPerPage, perPageAll)
		}
		page.PerPage = n
	}

	return page, nil
}

func parseIDs(values []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(values))
	for _, value := range values {
		for _, raw := range strings.Split(value, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid user id %q", raw)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
