package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/starboard/internal/config"
)

func memoryConfig() *config.Config {
	cfg := config.New()
	cfg.Backend = config.BackendMemory
	cfg.AdminPassword = "pw"
	cfg.AutoGenerateInterval = 0
	return cfg
}

func TestBuild(t *testing.T) {
	convey.Convey("Given a memory-backed config", t, func() {
		ctx := context.Background()
		cfg := memoryConfig()

		convey.Convey("When the app is built", func() {
			a, err := build(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = a.svc.Stop(ctx) }()

			convey.Convey("Then the router answers health checks", func() {
				w := httptest.NewRecorder()
				a.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"backend":"memory"`)
			})

			convey.Convey("And the server uses the configured address", func() {
				convey.So(a.server.Addr, convey.ShouldEqual, cfg.Addr)
				convey.So(a.server.ReadHeaderTimeout, convey.ShouldEqual, readHeaderTimeout)
			})
		})

		convey.Convey("When the password hash is not bcrypt", func() {
			cfg.AdminPasswordHash = "plain"
			_, err := build(ctx, cfg)

			convey.Convey("Then building fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a free port", t, func() {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		convey.So(err, convey.ShouldBeNil)
		addr := l.Addr().String()
		convey.So(l.Close(), convey.ShouldBeNil)

		cfg := memoryConfig()
		cfg.Addr = addr

		convey.Convey("When run is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg) }()

			var resp *http.Response
			for i := 0; i < 50; i++ {
				resp, err = http.Get("http://" + addr + "/api/health")
				if err == nil {
					break
				}
				time.Sleep(20 * time.Millisecond)
			}
			convey.So(err, convey.ShouldBeNil)
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			_ = resp.Body.Close()

			cancel()

			convey.Convey("Then it shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("run did not return")
				}
			})
		})
	})
}
