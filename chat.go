package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"supportdesk/render"
)

// Note: Port configuration lives in config.go
// Use HIGH_PORT_MODE=true environment variable for development

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("[main] %v", err)
		telemetryLogger.Sync()
		os.Exit(1)
	}
	telemetryLogger.Sync()
}

// httpFrontEnd is one HTTP listener; certFile and keyFile are set for HTTPS
type httpFrontEnd struct {
	srv      *http.Server
	certFile string
	keyFile  string
}

func run(ctx context.Context) error {
	app, err := initializeSupport(ctx)
	if err != nil {
		log.Printf("[main] Startup failed: %v", err)
		beacon("startup_failed", map[string]interface{}{"error": err.Error()})
		if HTTP_PORT <= 0 {
			return err
		}
		// Nothing but the error page is served until the operator fixes the setup
		log.Printf("[main] Serving configuration error page on :%d", HTTP_PORT)
		errorPage := httpFrontEnd{srv: newHTTPServer(HTTP_PORT, newConfigErrorHandler(err, render.NewHTML()), 0)}
		return serveAll(ctx, []httpFrontEnd{errorPage}, nil)
	}
	defer app.Close()

	var frontEnds []httpFrontEnd
	handler := newHTTPHandler(app)

	if HTTP_PORT > 0 {
		frontEnds = append(frontEnds, httpFrontEnd{srv: newHTTPServer(HTTP_PORT, handler, app.cfg.ProviderTimeout())})
	}
	if HTTPS_PORT > 0 {
		certPath, keyPath, found := findSSLCertificates()
		if found {
			frontEnds = append(frontEnds, httpFrontEnd{
				srv:      newHTTPServer(HTTPS_PORT, handler, app.cfg.ProviderTimeout()),
				certFile: certPath,
				keyFile:  keyPath,
			})
		} else {
			log.Printf("WARNING: SSL certificates not found, HTTPS disabled")
			log.Printf("Expected cert.pem and key.pem in working directory")
			log.Printf("Or valid Let's Encrypt certificates")
		}
	}

	return serveAll(ctx, frontEnds, app)
}

// serveAll runs the HTTP front ends plus, when app is set, the SSH and DNS
// front ends until ctx is cancelled or one of them fails
func serveAll(ctx context.Context, frontEnds []httpFrontEnd, app *supportApp) error {
	var sshSrv *sshServer
	var sshListener net.Listener
	if app != nil && SSH_PORT > 0 {
		var err error
		if sshSrv, err = newSSHServer(app); err != nil {
			return fmt.Errorf("ssh: %w", err)
		}
		if sshListener, err = net.Listen("tcp", fmt.Sprintf(":%d", SSH_PORT)); err != nil {
			return fmt.Errorf("ssh: %w", err)
		}
	}

	if len(frontEnds) == 0 && sshSrv == nil && (app == nil || DNS_PORT <= 0) {
		log.Println("[main] No front end enabled; set HTTP_PORT, HTTPS_PORT, SSH_PORT or DNS_PORT")
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, fe := range frontEnds {
		g.Go(func() error {
			var err error
			if fe.certFile != "" {
				log.Printf("[HTTPS] Listening on %s", fe.srv.Addr)
				err = fe.srv.ListenAndServeTLS(fe.certFile, fe.keyFile)
			} else {
				log.Printf("[HTTP] Listening on %s", fe.srv.Addr)
				err = fe.srv.ListenAndServe()
			}
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return fe.srv.Shutdown(shutdownCtx)
		})
	}

	if sshSrv != nil {
		g.Go(func() error {
			return sshSrv.Serve(ctx, sshListener)
		})
	}

	if app != nil && DNS_PORT > 0 {
		dnsSrv := newDNSServer(DNS_PORT, app)
		started, exited := make(chan struct{}), make(chan struct{})
		dnsSrv.NotifyStartedFunc = func() { close(started) }
		g.Go(func() error {
			defer close(exited)
			log.Printf("[DNS] Starting DNS server on port %d", DNS_PORT)
			return dnsSrv.ListenAndServe()
		})
		g.Go(func() error {
			<-ctx.Done()
			select {
			case <-started:
			case <-exited:
				return nil
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return dnsSrv.ShutdownContext(shutdownCtx)
		})
	}

	err := g.Wait()
	log.Println("[main] Shutdown complete")
	return err
}
