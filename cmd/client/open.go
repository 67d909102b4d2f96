package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/shoebox/internal/client/remote"
	"github.com/atinyakov/shoebox/internal/client/storage"
	"github.com/atinyakov/shoebox/internal/identity"
	"github.com/atinyakov/shoebox/internal/shoebox"
	"go.uber.org/zap"
)

const (
	storeFile     = "file"
	storeSQLite   = "sqlite"
	storeRemote   = "remote"
	storeSupabase = "supabase"

	defaultSQLiteFile = "shoebox.db"
)

type options struct {
	store       string
	file        string
	url         string
	token       string
	supabaseURL string
	supabaseKey string
	certFile    string
	keyFile     string
	caFile      string
}

// backend is an opened storage shape together with the identity it runs under.
type backend struct {
	repo     shoebox.Repository
	identity identity.Provider
	// signIn resolves the remote user and starts the session. Nil for local stores.
	signIn func(ctx context.Context) error
	close  func()
}

func open(opts options, log *zap.Logger) (*backend, error) {
	switch opts.store {
	case storeFile:
		return local(storage.NewFileRepository(opts.file), nil), nil

	case storeSQLite:
		path := opts.file
		if path == "" {
			path = defaultSQLiteFile
		}
		db, err := storage.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return local(storage.NewSQLiteRepository(db), db), nil

	case storeRemote:
		client, err := remote.NewHTTPClient(opts.certFile, opts.keyFile, opts.caFile)
		if err != nil {
			return nil, err
		}
		session := identity.NewSession()
		repo := remote.NewAPIRepository(client, opts.url, opts.token)
		return &backend{
			repo:     remote.NewBreakerRepository(repo, remote.DefaultBreakerConfig("shoebox-api"), log),
			identity: session,
			signIn: func(ctx context.Context) error {
				user, err := identity.APIUser(ctx, client, opts.url, opts.token)
				if err != nil {
					return err
				}
				session.SignIn(user)
				return nil
			},
			close: func() {},
		}, nil

	case storeSupabase:
		client, err := remote.NewSupabaseClient(opts.supabaseURL, opts.supabaseKey, opts.token)
		if err != nil {
			return nil, err
		}
		session := identity.NewSession()
		repo := remote.NewSupabaseRepository(client, session)
		return &backend{
			repo:     remote.NewBreakerRepository(repo, remote.DefaultBreakerConfig("supabase"), log),
			identity: session,
			signIn: func(context.Context) error {
				user, err := identity.SupabaseUser(client, opts.token)
				if err != nil {
					return err
				}
				session.SignIn(user)
				return nil
			},
			close: func() {},
		}, nil

	default:
		return nil, fmt.Errorf("unknown store %q", opts.store)
	}
}

func local(repo shoebox.Repository, db *sql.DB) *backend {
	return &backend{
		repo:     repo,
		identity: identity.Static(identity.LocalUser),
		signIn:   func(context.Context) error { return nil },
		close: func() {
			if db != nil {
				_ = db.Close()
			}
		},
	}
}
