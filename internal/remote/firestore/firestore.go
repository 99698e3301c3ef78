// Package firestore keeps ledger snapshots in a Firestore collection, one
// document per ledger key.
package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"cricketpay/internal/core"
	"cricketpay/internal/store"
)

type Options struct {
	ProjectID       string
	Collection      string
	CredentialsFile string
}

type Remote struct {
	client *firestore.Client
	col    *firestore.CollectionRef
}

var _ store.Remote = (*Remote)(nil)

// document is the stored shape. The ledger itself travels as JSON so that
// its field names match every other copy.
type document struct {
	Key        string    `firestore:"key"`
	Version    int64     `firestore:"version"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
	AnchorDate string    `firestore:"anchorDate"`
	Players    int       `firestore:"players"`
	Payload    string    `firestore:"payload"`
}

// New connects through a Firebase app. With FIRESTORE_EMULATOR_HOST set the
// client talks to the emulator and needs no credentials.
func New(ctx context.Context, o Options) (*Remote, error) {
	if o.ProjectID == "" || o.Collection == "" {
		return nil, errors.New("firestore remote needs a project id and a collection")
	}
	var opts []option.ClientOption
	switch {
	case os.Getenv("FIRESTORE_EMULATOR_HOST") != "":
		slog.InfoContext(ctx, "Connecting to Firestore emulator", "host", os.Getenv("FIRESTORE_EMULATOR_HOST"))
		opts = append(opts, option.WithoutAuthentication())
	case o.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(o.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: o.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firestore client: %w", err)
	}
	return &Remote{client: client, col: client.Collection(o.Collection)}, nil
}

func (r *Remote) Close() error {
	return r.client.Close()
}

// Push stores snap in a transaction that refuses to replace a newer version.
func (r *Remote) Push(ctx context.Context, snap store.Snapshot) error {
	doc, err := toDocument(snap)
	if err != nil {
		return err
	}
	ref := r.col.Doc(snap.Key)
	err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ds, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if ds != nil && ds.Exists() {
			var cur document
			if err := ds.DataTo(&cur); err != nil {
				return err
			}
			if cur.Version > snap.Version {
				return fmt.Errorf("%w: remote %d, pushed %d", store.ErrStaleSnapshot, cur.Version, snap.Version)
			}
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		return fmt.Errorf("push %s: %w", snap.Key, err)
	}
	slog.InfoContext(ctx, "Ledger snapshot pushed to Firestore", "ledger_key", snap.Key, "version", snap.Version)
	return nil
}

func (r *Remote) Pull(ctx context.Context, key string) (store.Snapshot, error) {
	ds, err := r.col.Doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return store.Snapshot{}, store.ErrNotFound
	}
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("pull %s: %w", key, err)
	}
	var doc document
	if err := ds.DataTo(&doc); err != nil {
		return store.Snapshot{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return fromDocument(doc)
}

func toDocument(snap store.Snapshot) (document, error) {
	b, err := json.Marshal(snap.Data)
	if err != nil {
		return document{}, fmt.Errorf("encode snapshot: %w", err)
	}
	doc := document{
		Key:       snap.Key,
		Version:   snap.Version,
		UpdatedAt: snap.UpdatedAt.UTC(),
		Players:   len(snap.Data.Players),
		Payload:   string(b),
	}
	if w, ok := snap.Data.CurrentWeekend(); ok {
		doc.AnchorDate = w.AnchorDate.String()
	}
	return doc, nil
}

func fromDocument(doc document) (store.Snapshot, error) {
	var data core.AppData
	if err := json.Unmarshal([]byte(doc.Payload), &data); err != nil {
		return store.Snapshot{}, fmt.Errorf("decode payload of %s: %w", doc.Key, err)
	}
	return store.Snapshot{Key: doc.Key, Data: data, Version: doc.Version, UpdatedAt: doc.UpdatedAt}, nil
}
