package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterCollector(t *testing.T) {
	c := NewRegisterCollector(func() []VolumeStat {
		return []VolumeStat{{Volume: "I,1", Lemmas: 3, Invalid: 1}, {Volume: "S I", Lemmas: 1}}
	})

	expected := `
# HELP lexikon_register_lemmas Number of entries in a volume register
# TYPE lexikon_register_lemmas gauge
lexikon_register_lemmas{volume="I,1"} 3
lexikon_register_lemmas{volume="S I"} 1
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "lexikon_register_lemmas"); err != nil {
		t.Error(err)
	}
	if n := testutil.CollectAndCount(c); n != 4 {
		t.Errorf("metrics = %d, want 4", n)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	h, err := Handler(func() []VolumeStat { return []VolumeStat{{Volume: "I,1", Lemmas: 2}} })
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}
	UpdateResults.WithLabelValues("update_by_name", ResultApplied).Inc()

	srv := httptest.NewServer(h)
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`lexikon_register_lemmas{volume="I,1"} 2`,
		`lexikon_register_updates_total{result="applied",strategy="update_by_name"}`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output lacks %q", want)
		}
	}
}
