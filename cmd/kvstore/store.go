package main

import (
	"context"

	"github.com/unkn0wn-root/kvstore"
	"github.com/unkn0wn-root/kvstore/backend"
	"github.com/unkn0wn-root/kvstore/codec"
	"github.com/unkn0wn-root/kvstore/connect"
	"github.com/unkn0wn-root/kvstore/internal/config"
	"github.com/unkn0wn-root/kvstore/internal/server"
)

// openStorage connects the configured backend and wraps it in a record store
// of the configured (or backend default) mode.
func openStorage(ctx context.Context, cfg config.Store, log kvstore.Logger, hooks kvstore.Hooks) (server.Storage, backend.Backend, error) {
	cd, err := codec.ForRecords(cfg.Codec)
	if err != nil {
		return nil, nil, err
	}
	if cfg.MaxValueBytes > 0 {
		cd = codec.Limit[codec.Record]{Inner: cd, MaxEncode: cfg.MaxValueBytes, MaxDecode: cfg.MaxValueBytes}
	}

	be, err := connect.Open(ctx, cfg.URL,
		connect.WithPingTimeout(cfg.PingTimeout),
		connect.WithDatabase(cfg.Database),
		connect.WithCollection(cfg.Collection),
	)
	if err != nil {
		return nil, nil, err
	}

	mode := kvstore.ModeFor(be.Traits())
	switch cfg.Mode {
	case "overwrite":
		mode = kvstore.ModeOverwrite
	case "append":
		mode = kvstore.ModeAppend
	}

	opts := kvstore.Options[codec.Record]{
		Backend:   be,
		Codec:     cd,
		Namespace: cfg.Namespace,
		Logger:    log,
		Hooks:     hooks,
		Timeout:   cfg.Timeout,
	}
	var st server.Storage
	if mode == kvstore.ModeAppend {
		s, err := kvstore.NewLog(opts)
		if err != nil {
			_ = be.Close(ctx)
			return nil, nil, err
		}
		st = server.Adapt(s)
	} else {
		s, err := kvstore.NewValues(opts)
		if err != nil {
			_ = be.Close(ctx)
			return nil, nil, err
		}
		st = server.Adapt(s)
	}
	log.Info("store opened", kvstore.Fields{"backend": be.Traits().Name, "mode": mode.String()})
	return st, be, nil
}
