package servetest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/advdv/whttp"
	"github.com/advdv/whttp/di"
)

type controllerModule struct {
	class     di.Class
	providers []di.Provider
}

func (m *controllerModule) Module() whttp.ModuleSpec {
	return whttp.ModuleSpec{Providers: m.providers, Controllers: []di.Class{m.class}}
}

// CallController serves a single request through an application containing
// just the given controller class. It handles the boilerplate of declaring a
// module, initializing the application and recording the response. Extra
// providers become available to the controller's constructor.
func CallController(t testing.TB, class di.Class, req *http.Request, providers ...di.Provider) *httptest.ResponseRecorder {
	t.Helper()

	app := whttp.New(
		&controllerModule{class: class, providers: providers},
		whttp.WithLogger(whttp.NewTestLogger(t)),
	)
	if err := app.Init(req.Context()); err != nil {
		t.Fatalf("servetest: init application: %v", err)
	}
	t.Cleanup(func() {
		if err := app.Shutdown(context.Background()); err != nil {
			t.Errorf("servetest: shutdown application: %v", err)
		}
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}
