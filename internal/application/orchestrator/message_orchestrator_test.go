package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/goleak"

	"github.com/Nyukimin/hybridbot/internal/domain/intent"
	"github.com/Nyukimin/hybridbot/internal/domain/llm"
	"github.com/Nyukimin/hybridbot/internal/domain/reply"
	"github.com/Nyukimin/hybridbot/internal/domain/routing"
	"github.com/Nyukimin/hybridbot/internal/infrastructure/metrics"
	infrarouting "github.com/Nyukimin/hybridbot/internal/infrastructure/routing"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockModel はテスト用の分類モデル
type mockModel struct {
	cluster intent.ClusterID
}

func (m *mockModel) Predict(text string) intent.ClusterID {
	return m.cluster
}

// mockFallback はテスト用のFallbackClient
type mockFallback struct {
	mu      sync.Mutex
	outcome llm.Outcome
	texts   []string
}

func (m *mockFallback) Generate(ctx context.Context, text string) llm.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return m.outcome
}

func (m *mockFallback) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

var thanks = []string{
	"¡Gracias a ti! ❤️",
	"De nada, me alegra ser de ayuda",
	"¡Muy amable de tu parte!",
}

func newTestOrchestrator(t *testing.T, model intent.Model, fb *mockFallback) *MessageOrchestrator {
	t.Helper()

	table, err := reply.NewTable(map[int][]string{
		0: {"¡Hola! 😊 ¿Como estás?"},
		4: thanks,
	}, nil)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	return NewMessageOrchestrator(Engine{
		Triggers: infrarouting.NewTriggerDetector([]string{"ollama", "llama", "hablar con llama"}, ""),
		Model:    model,
		Replies:  table,
		Fallback: fb,
		Metrics:  metrics.NewRecorder(),
	})
}

func TestNewMessageOrchestrator(t *testing.T) {
	orchestrator := newTestOrchestrator(t, nil, &mockFallback{})

	if orchestrator == nil {
		t.Fatal("NewMessageOrchestrator should not return nil")
	}
}

func TestMessageOrchestrator_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n "} {
		fb := &mockFallback{outcome: llm.Outcome{Text: "should not be used"}}
		orchestrator := newTestOrchestrator(t, &mockModel{cluster: 4}, fb)

		resp := orchestrator.ProcessMessage(context.Background(), ProcessMessageRequest{UserMessage: input})

		if resp.Response != reply.EmptyInputPrompt {
			t.Errorf("Expected empty-input prompt for %q, got '%s'", input, resp.Response)
		}
		if resp.Route != routing.RouteEMPTY {
			t.Errorf("Expected route EMPTY, got '%s'", resp.Route)
		}
		if len(fb.calls()) != 0 {
			t.Error("Fallback must not be called for blank input")
		}
	}
}

func TestMessageOrchestrator_TriggerScenario(t *testing.T) {
	fb := &mockFallback{outcome: llm.Outcome{Failure: llm.FailureConnection}}
	orchestrator := newTestOrchestrator(t, &mockModel{cluster: 4}, fb)

	resp := orchestrator.ProcessMessage(context.Background(), ProcessMessageRequest{
		UserMessage: "hablar con llama contame un chiste",
	})

	if resp.Route != routing.RouteTRIGGER {
		t.Errorf("Expected route TRIGGER, got '%s'", resp.Route)
	}

	calls := fb.calls()
	if len(calls) != 1 || calls[0] != "contame un chiste" {
		t.Errorf("Expected cleaned text to be sent, got %v", calls)
	}

	if resp.Response != reply.ConnectionFailure {
		t.Errorf("Expected connection failure message, got '%s'", resp.Response)
	}

	if resp.Failure != llm.FailureConnection {
		t.Errorf("Expected failure kind connection, got '%s'", resp.Failure)
	}
}

func TestMessageOrchestrator_TriggerReturnsGeneratedText(t *testing.T) {
	fb := &mockFallback{outcome: llm.Outcome{Text: "¿Qué hace una abeja en el gimnasio? ¡Zumba!"}}
	orchestrator := newTestOrchestrator(t, &mockModel{cluster: 4}, fb)

	got := orchestrator.HandleMessage(context.Background(), "Hablar con LLAMA contame un chiste")

	if got != "¿Qué hace una abeja en el gimnasio? ¡Zumba!" {
		t.Errorf("Expected generated text, got '%s'", got)
	}
}

func TestMessageOrchestrator_TemplateReply(t *testing.T) {
	fb := &mockFallback{}
	orchestrator := newTestOrchestrator(t, &mockModel{cluster: 4}, fb)

	resp := orchestrator.ProcessMessage(context.Background(), ProcessMessageRequest{UserMessage: "muchas gracias"})

	if resp.Route != routing.RouteTEMPLATE {
		t.Errorf("Expected route TEMPLATE, got '%s'", resp.Route)
	}

	if resp.Cluster != 4 {
		t.Errorf("Expected cluster 4, got %s", resp.Cluster)
	}

	found := false
	for _, c := range thanks {
		if resp.Response == c {
			found = true
		}
	}
	if !found {
		t.Errorf("Reply '%s' is not one of cluster 4's candidates", resp.Response)
	}

	if len(fb.calls()) != 0 {
		t.Error("Fallback must not be called when a template matches")
	}
}

func TestMessageOrchestrator_UnknownClusterFallsBack(t *testing.T) {
	fb := &mockFallback{outcome: llm.Outcome{Text: "respuesta generada"}}
	orchestrator := newTestOrchestrator(t, &mockModel{cluster: 7}, fb)

	resp := orchestrator.ProcessMessage(context.Background(), ProcessMessageRequest{UserMessage: "¿Cuál es la capital de Perú?"})

	if resp.Route != routing.RouteFALLBACK {
		t.Errorf("Expected route FALLBACK, got '%s'", resp.Route)
	}

	if resp.Reason != "unknown cluster" {
		t.Errorf("Expected reason 'unknown cluster', got '%s'", resp.Reason)
	}

	calls := fb.calls()
	if len(calls) != 1 || calls[0] != "¿Cuál es la capital de Perú?" {
		t.Errorf("Expected original text to be sent, got %v", calls)
	}

	if resp.Response != "respuesta generada" {
		t.Errorf("Expected generated reply, got '%s'", resp.Response)
	}
}

func TestMessageOrchestrator_ClassifierUnavailable(t *testing.T) {
	fb := &mockFallback{outcome: llm.Outcome{Failure: llm.FailureRequest}}
	orchestrator := newTestOrchestrator(t, nil, fb)

	resp := orchestrator.ProcessMessage(context.Background(), ProcessMessageRequest{UserMessage: "gracias"})

	if resp.Route != routing.RouteFALLBACK {
		t.Errorf("Expected route FALLBACK, got '%s'", resp.Route)
	}

	if resp.Cluster != intent.Unavailable {
		t.Errorf("Expected unavailable cluster, got %s", resp.Cluster)
	}

	if resp.Reason != "classifier unavailable" {
		t.Errorf("Expected reason 'classifier unavailable', got '%s'", resp.Reason)
	}

	if resp.Failure != llm.FailureRequest {
		t.Errorf("Expected request failure, got %s", resp.Failure)
	}

	if resp.Response != reply.RequestFailure {
		t.Errorf("Expected request failure message, got '%s'", resp.Response)
	}
}

func TestMessageOrchestrator_RequestID(t *testing.T) {
	orchestrator := newTestOrchestrator(t, &mockModel{cluster: 0}, &mockFallback{})

	resp := orchestrator.ProcessMessage(context.Background(), ProcessMessageRequest{UserMessage: "hola"})
	if resp.RequestID == "" {
		t.Error("Request ID should be generated")
	}

	resp = orchestrator.ProcessMessage(context.Background(), ProcessMessageRequest{RequestID: "fixed-id", UserMessage: "hola"})
	if resp.RequestID != "fixed-id" {
		t.Errorf("Expected caller request ID to be kept, got '%s'", resp.RequestID)
	}
}

func TestMessageOrchestrator_ConcurrentCalls(t *testing.T) {
	fb := &mockFallback{outcome: llm.Outcome{Text: "generado"}}
	orchestrator := newTestOrchestrator(t, &mockModel{cluster: 4}, fb)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := "gracias"
			if i%2 == 0 {
				msg = "ollama dime algo"
			}
			if got := orchestrator.HandleMessage(context.Background(), msg); got == "" {
				t.Error("Reply must never be empty")
			}
		}(i)
	}
	wg.Wait()

	if len(fb.calls()) != 16 {
		t.Errorf("Expected 16 fallback calls, got %d", len(fb.calls()))
	}
}

func TestProperty_TriggerNeverUsesTemplates(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("inputs containing a trigger phrase always take the trigger route", prop.ForAll(
		func(prefix, suffix string, upper bool) bool {
			fb := &mockFallback{outcome: llm.Outcome{Text: "generado"}}
			orchestrator := newTestOrchestrator(t, &mockModel{cluster: 4}, fb)

			phrase := "llama"
			if upper {
				phrase = strings.ToUpper(phrase)
			}
			resp := orchestrator.ProcessMessage(context.Background(), ProcessMessageRequest{
				UserMessage: prefix + " " + phrase + " " + suffix,
			})
			return resp.Route == routing.RouteTRIGGER && resp.Response == "generado" && len(fb.calls()) == 1
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.Property("blank input always yields the fixed prompt", prop.ForAll(
		func(n int, tabs bool) bool {
			ws := " "
			if tabs {
				ws = "\t\n"
			}
			fb := &mockFallback{outcome: llm.Outcome{Failure: llm.FailureConnection}}
			orchestrator := newTestOrchestrator(t, nil, fb)
			return orchestrator.HandleMessage(context.Background(), strings.Repeat(ws, n)) == reply.EmptyInputPrompt &&
				len(fb.calls()) == 0
		},
		gen.IntRange(0, 20),
		gen.Bool(),
	))

	properties.Property("non-trigger input without a classifier always falls back with a non-empty reply", prop.ForAll(
		func(text string, failure int) bool {
			if strings.TrimSpace(text) == "" || strings.Contains(strings.ToLower(text), "llama") {
				return true
			}
			fb := &mockFallback{outcome: llm.Outcome{Failure: llm.FailureKind(failure)}}
			orchestrator := newTestOrchestrator(t, nil, fb)
			resp := orchestrator.ProcessMessage(context.Background(), ProcessMessageRequest{UserMessage: text})
			return resp.Route == routing.RouteFALLBACK && resp.Response != ""
		},
		gen.AnyString(),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
