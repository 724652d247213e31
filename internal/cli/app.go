package cli

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-session-gateway/credentials"
	"github.com/jrsteele09/go-session-gateway/gateway"
	"github.com/jrsteele09/go-session-gateway/internal/metrics"
	"github.com/jrsteele09/go-session-gateway/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsNamespace = "session_gateway"

// app is one wired session: store, gateway and machine.
type app struct {
	kv       *credentials.SQLiteKV
	vault    *credentials.Vault
	gw       *gateway.Gateway
	machine  *session.Machine
	registry *prometheus.Registry
}

func openApp(ctx context.Context, opts *options) (*app, error) {
	kv, err := credentials.OpenSQLite(opts.credsPath)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m, err := metrics.New(reg, metricsNamespace)
	if err != nil {
		kv.Close()
		return nil, err
	}

	vault := credentials.NewVault(kv)
	gw, err := gateway.New(opts.apiURL, vault, gateway.WithTimeout(opts.timeout), gateway.WithMetrics(m))
	if err != nil {
		kv.Close()
		return nil, err
	}

	machineOpts := []session.MachineOption{session.WithMetrics(m), session.WithTimeout(opts.timeout)}
	if opts.issuer != "" {
		ep, err := session.Discover(ctx, opts.issuer, gw.HTTPClient())
		if err != nil {
			kv.Close()
			return nil, err
		}
		machineOpts = append(machineOpts, session.WithEndpoints(ep))
	}

	machine, err := session.New(gw, vault, machineOpts...)
	if err != nil {
		kv.Close()
		return nil, err
	}
	return &app{kv: kv, vault: vault, gw: gw, machine: machine, registry: reg}, nil
}

// resume bootstraps the machine from the stored credentials.
func (a *app) resume(ctx context.Context) session.State {
	_ = a.machine.Bootstrap(ctx)
	return a.machine.Snapshot()
}

func (a *app) Close() error {
	return a.kv.Close()
}
