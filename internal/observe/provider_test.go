package observe

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestInitProvider(t *testing.T) {
	ctx := context.Background()
	shutdown, err := InitProvider(ctx, ProviderConfig{ServiceName: "pushrules-test", ServiceVersion: "0.0.1"})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}

	if _, ok := otel.GetMeterProvider().(*sdkmetric.MeterProvider); !ok {
		t.Fatalf("Expected the SDK meter provider to be global, got %T", otel.GetMeterProvider())
	}

	m, err := NewMetrics(otel.GetMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordWin(ctx, "classic")

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{"pushrules_wins", `service_name="pushrules-test"`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected %q in scrape output", want)
		}
	}

	if err := shutdown(ctx); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}
