package greeting

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/greeting-service/internal/platform/logging"
	"github.com/janisto/greeting-service/internal/platform/timeutil"
)

const (
	homeMessage    = "GitHub Actions Workshop - Java Spring Boot Demo"
	serviceStatus  = "running"
	serviceVersion = "1.0.0"

	helloMessage = "Hello from Spring Boot!"
	deployedVia  = "GitHub Actions + Terraform"

	workshopGreeting = "Welcome to the GitHub Actions Workshop!"
)

var endpoints = []string{
	"GET / - Diese Nachricht",
	"GET /hello - Einfache Begrüßung",
	"GET /hello/{name} - Personalisierte Begrüßung",
	"GET /actuator/health - Health Check",
}

type handler struct {
	clock timeutil.Clock
}

// Register wires greeting routes into the provided API router. A nil clock
// falls back to the system clock.
func Register(api huma.API, clock timeutil.Clock) {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	h := &handler{clock: clock}

	huma.Register(api, huma.Operation{
		OperationID: "get-home",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Service overview",
		Description: "Returns the service banner, status, current time, version and the list of endpoints.",
		Tags:        []string{"Greeting"},
	}, h.home)

	huma.Register(api, huma.Operation{
		OperationID: "get-hello",
		Method:      http.MethodGet,
		Path:        "/hello",
		Summary:     "Simple greeting",
		Tags:        []string{"Greeting"},
	}, h.hello)

	huma.Register(api, huma.Operation{
		OperationID: "get-hello-name",
		Method:      http.MethodGet,
		Path:        "/hello/{name}",
		Summary:     "Personalized greeting",
		Description: "Greets the caller by the name given in the path. The name is used as-is.",
		Tags:        []string{"Greeting"},
	}, h.helloName)
}

func (h *handler) home(ctx context.Context, _ *struct{}) (*HomeOutput, error) {
	applog.LogInfo(ctx, "home", zap.String("path", "/"))
	return &HomeOutput{Body: HomeData{
		Message:   homeMessage,
		Status:    serviceStatus,
		Timestamp: timeutil.FormatLocal(h.clock()),
		Version:   serviceVersion,
		Endpoints: append([]string(nil), endpoints...),
	}}, nil
}

func (h *handler) hello(ctx context.Context, _ *struct{}) (*HelloOutput, error) {
	applog.LogInfo(ctx, "hello", zap.String("path", "/hello"))
	return &HelloOutput{Body: HelloData{
		Message:     helloMessage,
		DeployedVia: deployedVia,
	}}, nil
}

func (h *handler) helloName(ctx context.Context, input *NameInput) (*HelloNameOutput, error) {
	applog.LogInfo(ctx, "hello name", zap.String("path", "/hello/{name}"), zap.String("name", input.Name))
	return &HelloNameOutput{Body: HelloNameData{
		Message:  fmt.Sprintf("Hello, %s!", input.Name),
		Greeting: workshopGreeting,
	}}, nil
}
