package audithttp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kirana-event/kirana/internal/audit"
)

func TestFiltersFromQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/dashboard/audit?action=cms.transition&entity=cms_content&actor=7&page=3&per_page=50", nil)
	f := FiltersFromQuery(r)
	assert.Equal(t, audit.Filters{Action: "cms.transition", Entity: "cms_content", ActorID: 7, Page: 3, PerPage: 50}, f)

	r = httptest.NewRequest(http.MethodGet, "/dashboard/audit?actor=abc&per_page=-1", nil)
	f = FiltersFromQuery(r)
	assert.Zero(t, f.ActorID)
	assert.Zero(t, f.PerPage)
	assert.Equal(t, 1, f.Page)
}
