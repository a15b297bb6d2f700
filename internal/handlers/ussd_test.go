package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"avara-ussd/internal/models"
	"avara-ussd/internal/services"
	"avara-ussd/internal/ussd"
)

type fixedCatalog struct {
	snapshot *services.CatalogSnapshot
}

func (c *fixedCatalog) Refresh(ctx context.Context) error  { return nil }
func (c *fixedCatalog) Current() *services.CatalogSnapshot { return c.snapshot }

type recordingNotifier struct {
	mu       sync.Mutex
	sent     []string
	messages []string
	done     chan struct{}
}

func (n *recordingNotifier) Send(phoneNumber, message string) error {
	n.mu.Lock()
	n.sent = append(n.sent, phoneNumber)
	n.messages = append(n.messages, message)
	n.mu.Unlock()
	close(n.done)
	return nil
}

func newUSSDRouter(notifier services.NotificationServiceInterface) *gin.Engine {
	gin.SetMode(gin.TestMode)

	catalog := &fixedCatalog{snapshot: services.NewCatalogSnapshot([]models.Event{
		{ID: 11, Name: "Summer Fest", Price: 500, Venue: "Nairobi"},
	})}
	machine := ussd.NewMachine(catalog, nil, nil, nil, nil, ussd.Options{})

	router := gin.New()
	router.POST("/ussd", NewUSSDHandler(machine, notifier).Handle)
	return router
}

func postUSSD(router *gin.Engine, phoneNumber, text string) *httptest.ResponseRecorder {
	form := url.Values{}
	form.Set("phoneNumber", phoneNumber)
	form.Set("text", text)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ussd", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)
	return w
}

func TestUSSDHandler_MainMenu(t *testing.T) {
	router := newUSSDRouter(nil)

	w := postUSSD(router, "+254700000001", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected text/plain response, got %q", ct)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "CON ") {
		t.Errorf("expected a CON response, got %q", body)
	}
	if !strings.Contains(body, "Welcome to AVARA") {
		t.Errorf("expected the main menu, got %q", body)
	}
}

func TestUSSDHandler_TerminalResponseMirroredOverSMS(t *testing.T) {
	notifier := &recordingNotifier{done: make(chan struct{})}
	router := newUSSDRouter(notifier)

	w := postUSSD(router, "+254700000001", "0")
	if !strings.HasPrefix(w.Body.String(), "END ") {
		t.Fatalf("expected an END response, got %q", w.Body.String())
	}

	select {
	case <-notifier.done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected an SMS mirror of the terminal message")
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.sent) != 1 || notifier.sent[0] != "+254700000001" {
		t.Errorf("unexpected SMS recipients %v", notifier.sent)
	}
	if strings.HasPrefix(notifier.messages[0], "END ") {
		t.Errorf("the END prefix is gateway protocol, not message content: %q", notifier.messages[0])
	}
}

func TestUSSDHandler_MenuResponseNotMirrored(t *testing.T) {
	notifier := &recordingNotifier{done: make(chan struct{})}
	router := newUSSDRouter(notifier)

	w := postUSSD(router, "+254700000001", "")
	if !strings.HasPrefix(w.Body.String(), "CON ") {
		t.Fatalf("expected a CON response, got %q", w.Body.String())
	}

	select {
	case <-notifier.done:
		t.Fatal("a CON response must not trigger an SMS")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUSSDHandler_MissingPhoneNumber(t *testing.T) {
	router := newUSSDRouter(nil)

	w := postUSSD(router, "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "END ") {
		t.Errorf("expected an END response for a missing phone number, got %q", w.Body.String())
	}
}
