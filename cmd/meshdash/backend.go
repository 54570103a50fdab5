package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"gopkg.in/yaml.v3"

	core "github.com/goliatone/go-mesh-dashboard/components/dashboard"
	"github.com/goliatone/go-mesh-dashboard/pkg/configstore"
	"github.com/goliatone/go-mesh-dashboard/pkg/meshapi"
)

type backendCmd struct {
	Addr          string            `default:":8080" help:"Listen address for the API."`
	DebugAddr     string            `name:"debug-addr" default:":8081" help:"Listen address for /debug/metrics and /debug/ready."`
	RedisURL      string            `name:"redis-url" env:"MESHDASH_REDIS_URL" help:"Redis URL; configs are kept in memory when unset or unreachable."`
	RedisUser     string            `name:"redis-user" env:"MESHDASH_REDIS_USER"`
	RedisPassword string            `name:"redis-password" env:"MESHDASH_REDIS_PASSWORD"`
	Token         map[string]string `help:"Bearer token to user id, e.g. --token secret=alice (repeatable)."`
	Fixtures      string            `type:"path" help:"YAML or JSON node fixtures served from the node endpoints."`
}

// fixtureDoc is the on-disk shape of --fixtures.
type fixtureDoc struct {
	Telemetry core.TelemetryByNode          `json:"telemetry"`
	History   map[string]core.HistorySeries `json:"history"`
	Nodes     []core.NodeSummary            `json:"nodes"`
}

func (cmd *backendCmd) Run(ctx context.Context, _ *globals) error {
	opts := configstore.Options{
		Repository: cmd.repository(ctx),
		Auth:       configstore.BearerTokens(cmd.Token),
	}
	if cmd.Fixtures != "" {
		data, err := loadFixtures(cmd.Fixtures)
		if err != nil {
			return err
		}
		mock := meshapi.NewMockClient(data)
		opts.Telemetry = mock
		opts.Nodes = mock
	}
	srv := configstore.NewServer(opts)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		runWebServer(ctx, configstore.CreateRouter(srv), cmd.Addr)
	}()
	go func() {
		defer wg.Done()
		runWebServer(ctx, configstore.CreateDebugRouter(), cmd.DebugAddr)
	}()
	wg.Wait()
	return nil
}

func (cmd *backendCmd) repository(ctx context.Context) configstore.Repository {
	if cmd.RedisURL == "" {
		return configstore.NewMemoryRepository()
	}
	pool, err := configstore.NewRedisPool(ctx, configstore.RedisConfig{
		URL:      cmd.RedisURL,
		User:     cmd.RedisUser,
		Password: cmd.RedisPassword,
	})
	if err == nil {
		conn, cerr := pool.GetContext(ctx)
		if cerr == nil {
			_, cerr = conn.Do("PING")
			conn.Close()
		}
		err = cerr
	}
	if err != nil {
		log.Error(ctx, errors.Wrap(err, "failed to connect to redis, falling back to memory store"))
		return configstore.NewMemoryRepository()
	}
	return configstore.NewRedisRepository(pool)
}

func loadFixtures(path string) (meshapi.MockData, error) {
	raw, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return meshapi.MockData{}, errors.Wrap(err, "read fixtures", j.KV("path", path))
	}
	return decodeFixtures(raw)
}

// decodeFixtures accepts YAML (a JSON document is valid YAML) and maps it
// onto the wire types through their JSON tags.
func decodeFixtures(raw []byte) (meshapi.MockData, error) {
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return meshapi.MockData{}, errors.Wrap(err, "parse fixtures")
	}
	asJSON, err := json.Marshal(generic)
	if err != nil {
		return meshapi.MockData{}, errors.Wrap(err, "convert fixtures")
	}
	var doc fixtureDoc
	dec := json.NewDecoder(strings.NewReader(string(asJSON)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return meshapi.MockData{}, errors.Wrap(err, "decode fixtures")
	}
	return meshapi.MockData{Telemetry: doc.Telemetry, History: doc.History, Nodes: doc.Nodes}, nil
}

func runWebServer(ctx context.Context, router *httprouter.Router, addr string) {
	srv := &http.Server{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Handler:           router,
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go shutdownOnCancel(ctx, srv)
	log.Info(ctx, "server listening", j.KV("addr", addr))
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(ctx, errors.Wrap(err, "server failed", j.KV("addr", addr)))
	}
	log.Info(ctx, "server terminated", j.KV("addr", addr))
}

func shutdownOnCancel(ctx context.Context, server *http.Server) {
	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	log.Info(ctx, "shutting down http server")
	_ = server.Shutdown(ctx)
}
