// Package mongo stores documents in MongoDB, one collection per CMS
// collection plus a "globals" collection keyed by slug.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"site-cms/pkg/models"
	"site-cms/pkg/store"
)

const (
	defaultDatabase   = "site"
	globalsCollection = "globals"
	connectTimeout    = 10 * time.Second
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to the URI and ensures unique indexes. The database name is
// taken from the URI path.
func New(ctx context.Context, uri string) (*Store, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("parse database uri: %w", err)
	}
	dbName := cs.Database
	if dbName == "" {
		dbName = defaultDatabase
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	for name, field := range store.UniqueFields {
		_, err := s.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("create %s.%s index: %w", name, field, err)
		}
	}
	return nil
}

func (s *Store) Pages() store.Collection[models.Page] {
	return newCollection[models.Page](s.db, models.CollectionPages)
}

func (s *Store) Posts() store.Collection[models.Post] {
	return newCollection[models.Post](s.db, models.CollectionPosts)
}

func (s *Store) Categories() store.Collection[models.Category] {
	return newCollection[models.Category](s.db, models.CollectionCategories)
}

func (s *Store) Media() store.Collection[models.Media] {
	return newCollection[models.Media](s.db, models.CollectionMedia)
}

func (s *Store) Users() store.Collection[models.User] {
	return newCollection[models.User](s.db, models.CollectionUsers)
}

func (s *Store) Redirects() store.Collection[models.Redirect] {
	return newCollection[models.Redirect](s.db, models.CollectionRedirects)
}

func (s *Store) FormSubmissions() store.Collection[models.FormSubmission] {
	return newCollection[models.FormSubmission](s.db, models.CollectionFormSubmissions)
}

func (s *Store) Globals() store.Globals {
	return &globals{coll: s.db.Collection(globalsCollection)}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type collection[T any] struct {
	name string
	coll *mongo.Collection
}

func newCollection[T any](db *mongo.Database, name string) *collection[T] {
	return &collection[T]{name: name, coll: db.Collection(name)}
}

// filter translates a Where into a MongoDB filter document. Keys that
// would be read as operators are refused.
func filter(where store.Where) (bson.M, error) {
	f := bson.M{}
	for key, value := range where {
		if !store.ValidField(key) {
			return nil, fmt.Errorf("filter %q: %w", key, store.ErrInvalidField)
		}
		if in, ok := value.(store.In); ok {
			f[key] = bson.M{"$in": []string(in)}
			continue
		}
		f[key] = value
	}
	return f, nil
}

func sortDoc(sort string) bson.D {
	field, desc := store.ParseSort(sort)
	dir := 1
	if desc {
		dir = -1
	}
	return bson.D{{Key: field, Value: dir}}
}

// findOptions sorts and pages a query. Limit 0 returns every match.
func findOptions(q store.Query) *options.FindOptions {
	opts := options.Find().SetSort(sortDoc(q.Sort))
	if q.Limit > 0 {
		opts.SetSkip(int64(q.Skip())).SetLimit(int64(q.Limit))
	}
	return opts
}

func (c *collection[T]) Find(ctx context.Context, q store.Query) (*store.Result[T], error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("find %s: %w", c.name, err)
	}
	f, err := filter(q.Where)
	if err != nil {
		return nil, err
	}
	total, err := c.coll.CountDocuments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", c.name, err)
	}

	cur, err := c.coll.Find(ctx, f, findOptions(q))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.name, err)
	}
	var docs []T
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.name, err)
	}
	return store.NewResult(docs, int(total), q), nil
}

func (c *collection[T]) findOne(ctx context.Context, f bson.M) (*T, error) {
	var doc T
	if err := c.coll.FindOne(ctx, f).Decode(&doc); err != nil {
		return nil, readError(c.name, err)
	}
	return &doc, nil
}

// readError maps a missing document onto store.ErrNotFound.
func readError(name string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", name, store.ErrNotFound)
	}
	return fmt.Errorf("find %s: %w", name, err)
}

// writeError maps unique index violations onto store.ErrDuplicate.
func writeError(name, id, op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s %s: %w", name, id, store.ErrDuplicate)
	}
	return fmt.Errorf("%s %s: %w", op, name, err)
}

func (c *collection[T]) FindByID(ctx context.Context, id string) (*T, error) {
	return c.findOne(ctx, bson.M{"_id": id})
}

func (c *collection[T]) FindOne(ctx context.Context, where store.Where) (*T, error) {
	f, err := filter(where)
	if err != nil {
		return nil, err
	}
	return c.findOne(ctx, f)
}

func (c *collection[T]) Count(ctx context.Context, where store.Where) (int, error) {
	f, err := filter(where)
	if err != nil {
		return 0, err
	}
	n, err := c.coll.CountDocuments(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return int(n), nil
}

func (c *collection[T]) Create(ctx context.Context, doc *T) error {
	base, err := store.PrepareCreate(doc, time.Now())
	if err != nil {
		return err
	}
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return writeError(c.name, base.ID, "insert", err)
	}
	return nil
}

func (c *collection[T]) Update(ctx context.Context, doc *T) error {
	d, ok := any(doc).(models.Document)
	if !ok {
		return fmt.Errorf("store: %T is not a document", doc)
	}
	id := d.GetBase().ID

	var existing models.Base
	err := c.coll.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"createdAt": 1})).Decode(&existing)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %s: %w", c.name, id, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("find %s: %w", c.name, err)
	}

	if _, err := store.PrepareUpdate(doc, existing.CreatedAt, time.Now()); err != nil {
		return err
	}
	res, err := c.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return writeError(c.name, id, "replace", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s %s: %w", c.name, id, store.ErrNotFound)
	}
	return nil
}

func (c *collection[T]) Delete(ctx context.Context, id string) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s: %w", c.name, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s %s: %w", c.name, id, store.ErrNotFound)
	}
	return nil
}

type globals struct {
	coll *mongo.Collection
}

func (g *globals) Get(ctx context.Context, slug string, out interface{}) error {
	err := g.coll.FindOne(ctx, bson.M{"_id": slug}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find global %s: %w", slug, err)
	}
	return nil
}

func (g *globals) Put(ctx context.Context, slug string, doc interface{}) error {
	_, err := g.coll.ReplaceOne(ctx, bson.M{"_id": slug}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save global %s: %w", slug, err)
	}
	return nil
}
