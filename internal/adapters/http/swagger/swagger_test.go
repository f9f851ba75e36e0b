package swagger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestSwaggerHandler(t *testing.T) {
	convey.Convey("Given a mux with the docs routes", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux)

		convey.Convey("Then /openapi.yaml serves the document", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", http.NoBody))

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "application/yaml; charset=utf-8")
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "/imports/file")
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "/imports/api")
		})

		convey.Convey("And /api-docs serves the ReDoc page", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api-docs", http.NoBody))

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "text/html; charset=utf-8")
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "redoc-container")
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "/openapi.yaml")
		})

		convey.Convey("And a nil mux panics", func() {
			convey.So(func() { Register(context.Background(), nil) }, convey.ShouldPanic)
		})
	})
}
