package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/grafana/pyroscope-go"
	"github.com/riskibarqy/sports-insights/internal/config"
	"github.com/riskibarqy/sports-insights/internal/platform/logging"
)

// Profiling owns the optional pyroscope agent and pprof listener.
type Profiling struct {
	profiler *pyroscope.Profiler
	pprof    *http.Server
	logger   *logging.Logger
}

// StartProfiling starts whichever of pyroscope and pprof is enabled. A
// failure to start one stops anything already started.
func StartProfiling(cfg config.Config, logger *logging.Logger) (*Profiling, error) {
	if logger == nil {
		logger = logging.Default()
	}
	p := &Profiling{logger: logger}

	if cfg.PyroscopeEnabled {
		profiler, err := pyroscope.Start(pyroscopeConfig(cfg))
		if err != nil {
			return nil, err
		}
		p.profiler = profiler
		logger.Info("pyroscope enabled", "server_address", cfg.PyroscopeServerAddress, "application", cfg.PyroscopeAppName)
	}

	if cfg.PprofEnabled {
		ln, err := net.Listen("tcp", cfg.PprofAddr)
		if err != nil {
			_ = p.Stop(time.Second)
			return nil, err
		}
		p.pprof = &http.Server{Addr: ln.Addr().String(), Handler: pprofMux(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := p.pprof.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("pprof server failed", "error", err)
			}
		}()
		logger.Info("pprof server listening", "addr", p.pprof.Addr)
	}

	return p, nil
}

// PprofAddr is empty unless the pprof listener is running.
func (p *Profiling) PprofAddr() string {
	if p == nil || p.pprof == nil {
		return ""
	}
	return p.pprof.Addr
}

// Stop flushes the profiler and shuts the pprof listener down within timeout.
func (p *Profiling) Stop(timeout time.Duration) error {
	if p == nil {
		return nil
	}

	var errs []error
	if p.pprof != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		errs = append(errs, p.pprof.Shutdown(ctx))
		cancel()
		p.pprof = nil
	}
	if p.profiler != nil {
		errs = append(errs, p.profiler.Stop())
		p.profiler = nil
	}
	return errors.Join(errs...)
}

func pyroscopeConfig(cfg config.Config) pyroscope.Config {
	return pyroscope.Config{
		ApplicationName:   cfg.PyroscopeAppName,
		ServerAddress:     cfg.PyroscopeServerAddress,
		AuthToken:         cfg.PyroscopeAuthToken,
		BasicAuthUser:     cfg.PyroscopeBasicAuthUser,
		BasicAuthPassword: cfg.PyroscopeBasicAuthPassword,
		UploadRate:        cfg.PyroscopeUploadRate,
		Tags: map[string]string{
			"env":     cfg.AppEnv,
			"service": cfg.ServiceName,
			"model":   cfg.Gemini.Model,
		},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	}
}

func pprofMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /debug/pprof/", pprof.Index)
	mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	return mux
}
