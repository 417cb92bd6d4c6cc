package e2e

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	jobmetrics "github.com/kirana-event/kirana/internal/jobs"
	"github.com/kirana-event/kirana/internal/observability"
	"github.com/kirana-event/kirana/internal/rbac"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type alertFile struct {
	Groups []struct {
		Rules []alertRule `yaml:"rules"`
	} `yaml:"groups"`
}

var metricName = regexp.MustCompile(`kirana_[a-z_]+`)

func loadRules(t *testing.T) []alertRule {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "kirana.yml"))
	require.NoError(t, err)
	var file alertFile
	require.NoError(t, yaml.Unmarshal(data, &file))
	var rules []alertRule
	for _, g := range file.Groups {
		rules = append(rules, g.Rules...)
	}
	require.NotEmpty(t, rules)
	return rules
}

// scrape drives every series the alerts read and returns the exposition text.
func scrape(t *testing.T) string {
	t.Helper()
	metrics := observability.NewMetrics()
	jobs := jobmetrics.NewMetrics(metrics.Registerer())

	failing := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	failing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	metrics.AccessDenied(rbac.DeniedPath)
	metrics.ObserveHealth("database", 30)
	metrics.ContentCache(true)
	jobs.EmailSent("invitation", errors.New("smtp: connection refused"))
	_ = jobs.Track("invitation:send").End(nil)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestAlertRulesAreActionable(t *testing.T) {
	want := map[string]string{
		"HighErrorRate":           "critical",
		"SystemHealthCritical":    "critical",
		"InvitationEmailFailures": "warning",
		"AccessDeniedSpike":       "warning",
	}
	rules := loadRules(t)
	require.Len(t, rules, len(want))
	for _, rule := range rules {
		severity, ok := want[rule.Alert]
		require.Truef(t, ok, "unexpected alert %q", rule.Alert)
		assert.Equal(t, severity, rule.Labels["severity"], rule.Alert)
		assert.NotEmpty(t, rule.For, rule.Alert)
		assert.NotEmpty(t, rule.Annotations["summary"], rule.Alert)
		assert.NotEmpty(t, rule.Annotations["description"], rule.Alert)
	}
}

func TestAlertExpressionsReferenceExportedMetrics(t *testing.T) {
	exposition := scrape(t)
	for _, rule := range loadRules(t) {
		names := metricName.FindAllString(rule.Expr, -1)
		require.NotEmptyf(t, names, "%s reads no kirana metric", rule.Alert)
		for _, name := range names {
			assert.Containsf(t, exposition, "\n"+name, "%s reads %s which is never exported", rule.Alert, name)
		}
	}
}

func TestEmailFailureSeriesMatchesAlertLabels(t *testing.T) {
	exposition := scrape(t)
	assert.Contains(t, exposition, `kirana_emails_total{kind="invitation",status="failed"} 1`)
	assert.Contains(t, exposition, `kirana_access_denied_total{reason="path"} 1`)
}

func TestRunbookAnchorsExist(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "docs", "runbook-ops.md"))
	require.NoError(t, err)

	anchors := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		if heading, ok := strings.CutPrefix(line, "## "); ok {
			anchors[slug(heading)] = true
		}
	}
	for _, rule := range loadRules(t) {
		ref := rule.Annotations["runbook"]
		doc, anchor, ok := strings.Cut(ref, "#")
		require.Truef(t, ok, "%s runbook %q has no anchor", rule.Alert, ref)
		assert.Equal(t, "docs/runbook-ops.md", doc)
		assert.Truef(t, anchors[anchor], "%s points at missing section #%s", rule.Alert, anchor)
	}
}

func slug(heading string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(heading)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteRune('-')
		}
	}
	return b.String()
}
