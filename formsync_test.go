package formsync_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/goliatone/go-formsync"
	"github.com/goliatone/go-formsync/pkg/config"
	"github.com/goliatone/go-formsync/pkg/controller"
	"github.com/goliatone/go-formsync/pkg/entity"
	"github.com/goliatone/go-formsync/pkg/testsupport"
)

func testConfig(url string) formsync.Config {
	cfg := config.Default()
	cfg.APIURL = url
	return cfg
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := formsync.New(config.Default())
	if !errors.Is(err, config.ErrMissingAPIURL) {
		t.Fatalf("expected ErrMissingAPIURL, got %v", err)
	}
}

func TestController_UsesConfiguredPageSize(t *testing.T) {
	srv := testsupport.NewServer()
	defer srv.Close()
	srv.Seed("game", testsupport.Games(7, "t1", "t2")...)

	cfg := testConfig(srv.URL())
	cfg.PageSize = 3
	app, err := formsync.New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctrl, err := app.Controller(entity.KindGame)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	defer ctrl.Close()

	if err := ctrl.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if ctrl.TotalPages() != 3 || len(ctrl.Items()) != 3 {
		t.Fatalf("expected 3 pages of 3, got %d pages with %d items", ctrl.TotalPages(), len(ctrl.Items()))
	}
	last, _ := srv.LastRequest(http.MethodGet)
	if last.Query != "limit=3&page=1" {
		t.Fatalf("unexpected query %q", last.Query)
	}
}

func TestController_UnknownKind(t *testing.T) {
	app, err := formsync.New(testConfig("http://localhost:9"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := app.Controller(entity.Kind("stadium")); err == nil {
		t.Fatalf("expected error for unregistered kind")
	}
}

func TestController_NotifiesThroughAppNotifier(t *testing.T) {
	srv := testsupport.NewServer()
	defer srv.Close()
	srv.Seed("genre", testsupport.Genre("g1", "Drama"))

	var messages []string
	notifier := controller.NotifierFunc(func(n controller.Notice) {
		messages = append(messages, n.Message)
	})
	app, err := formsync.New(testConfig(srv.URL()),
		formsync.WithNotifier(notifier),
		formsync.WithConfirmer(controller.AlwaysConfirm),
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctrl, err := app.Controller(entity.KindGenre)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	defer ctrl.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctrl.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := ctrl.Delete(ctx, "g1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(messages) != 1 || messages[0] != "Genre deleted successfully" {
		t.Fatalf("unexpected notifications %v", messages)
	}
	if len(srv.Items("genre")) != 0 {
		t.Fatalf("expected genre removed")
	}
}

func TestOpenAPI_IncludesServer(t *testing.T) {
	app, err := formsync.New(testConfig("http://api.example"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	doc := app.OpenAPI()
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://api.example" {
		t.Fatalf("unexpected servers %+v", doc.Servers)
	}
	if doc.Paths.Value("/team/{id}") == nil {
		t.Fatalf("expected team item path")
	}
}
