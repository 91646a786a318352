package database

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"github.com/PancyStudios/PancyMusicGo/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotConnected is returned by reads while the database is offline
var ErrNotConnected = errors.New("database not connected")

const (
	singleTimeout = 5 * time.Second
	bulkTimeout   = 10 * time.Second
)

// Store is the document access used by the music services
type Store[T any] interface {
	Get(query bson.M) (*T, error)
	GetAll(query bson.M) ([]*T, error)
	Set(query bson.M, data interface{}) (*T, error)
	Delete(query bson.M) error
	DeleteMany(query bson.M) error
}

// Stores used by the music services, set by InitGlobalDataManagers
var (
	GlobalPermissionDM Store[models.MusicPermission]
	GlobalSettingsDM   Store[models.GuildMusicSettings]
)

func InitGlobalDataManagers(db *Database) {
	GlobalPermissionDM = NewDataManager[models.MusicPermission](PermissionsCollection, db)
	GlobalSettingsDM = NewDataManager[models.GuildMusicSettings](SettingsCollection, db)
}

// DataManagerOptions contains configuration for a DataManager
type DataManagerOptions struct {
	// MaxCacheSize bounds the shared cache when this manager inserts
	MaxCacheSize int
}

func DefaultDataManagerOptions() DataManagerOptions {
	return DataManagerOptions{MaxCacheSize: 1000}
}

// DataManager is a cached Store over one collection. Writes made while the
// database is offline go to the database's write queue.
type DataManager[T any] struct {
	name    string
	db      *Database
	options DataManagerOptions
}

var _ Store[models.MusicPermission] = (*DataManager[models.MusicPermission])(nil)

func NewDataManager[T any](collectionName string, db *Database, opts ...DataManagerOptions) *DataManager[T] {
	o := DefaultDataManagerOptions()
	if len(opts) > 0 {
		o = opts[0]
	}
	return &DataManager[T]{name: collectionName, db: db, options: o}
}

// collection is resolved on every call so a manager created offline works
// after the reconnect.
func (dm *DataManager[T]) collection() *mongo.Collection {
	if dm.db == nil || !dm.db.Connected() {
		return nil
	}
	return dm.db.GetCollection(dm.name)
}

// cacheKey is deterministic for equal queries regardless of map order
func (dm *DataManager[T]) cacheKey(query bson.M) string {
	parts := make([]string, 0, len(query))
	for _, k := range slices.Sorted(maps.Keys(query)) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, query[k]))
	}
	return dm.name + ":{" + strings.Join(parts, ",") + "}"
}

// deferWrite queues op for the next reconnect. cause is nil when the database
// is offline and the write's error otherwise.
func (dm *DataManager[T]) deferWrite(op WriteOp, query bson.M, data interface{}, cause error) {
	if cause != nil {
		logger.Error(fmt.Sprintf("'%s' falló en '%s', se reintentará: %v", op, dm.name, cause), "DataManager")
	} else {
		logger.Warn(fmt.Sprintf("DB offline, '%s' en '%s' queda en cola", op, dm.name), "DataManager")
	}
	if dm.db != nil {
		dm.db.AddToWriteQueue(QueuedOperation{
			CollectionName: dm.name,
			Query:          query,
			Operation:      op,
			Data:           data,
		})
	}
}

// Get returns the matching document, from cache when possible. A missing
// document is nil, nil.
func (dm *DataManager[T]) Get(query bson.M) (*T, error) {
	key := dm.cacheKey(query)
	if v, ok := sharedCache.get(key); ok {
		return v.(*T), nil
	}

	col := dm.collection()
	if col == nil {
		return nil, ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(context.Background(), singleTimeout)
	defer cancel()

	doc := new(T)
	switch err := col.FindOne(ctx, query).Decode(doc); {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, nil
	case err != nil:
		logger.Warn(fmt.Sprintf("Fallo al leer de '%s': %v", dm.name, err), "DataManager")
		return nil, err
	}

	sharedCache.put(key, doc, dm.options.MaxCacheSize)
	return doc, nil
}

// GetAll reads every matching document, bypassing the cache. Documents that
// fail to decode are skipped.
func (dm *DataManager[T]) GetAll(query bson.M) ([]*T, error) {
	col := dm.collection()
	if col == nil {
		return nil, ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(context.Background(), bulkTimeout)
	defer cancel()

	cursor, err := col.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []*T
	for cursor.Next(ctx) {
		doc := new(T)
		if err := cursor.Decode(doc); err != nil {
			logger.Debug(fmt.Sprintf("Documento ilegible en '%s': %v", dm.name, err), "DataManager")
			continue
		}
		docs = append(docs, doc)
	}
	return docs, cursor.Err()
}

// Set upserts data and returns the stored document. An offline write is
// queued and returns nil, nil.
func (dm *DataManager[T]) Set(query bson.M, data interface{}) (*T, error) {
	key := dm.cacheKey(query)
	sharedCache.remove(key)

	col := dm.collection()
	if col == nil {
		dm.deferWrite(OpSet, query, data, nil)
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), singleTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	doc := new(T)
	if err := col.FindOneAndUpdate(ctx, query, bson.M{"$set": data}, opts).Decode(doc); err != nil {
		dm.deferWrite(OpSet, query, data, err)
		return nil, err
	}

	sharedCache.put(key, doc, dm.options.MaxCacheSize)
	return doc, nil
}

func (dm *DataManager[T]) Delete(query bson.M) error {
	sharedCache.remove(dm.cacheKey(query))

	col := dm.collection()
	if col == nil {
		dm.deferWrite(OpDelete, query, nil, nil)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), singleTimeout)
	defer cancel()

	if _, err := col.DeleteOne(ctx, query); err != nil {
		dm.deferWrite(OpDelete, query, nil, err)
		return err
	}
	return nil
}

// DeleteMany drops the whole collection from the cache since any cached
// key may match query.
func (dm *DataManager[T]) DeleteMany(query bson.M) error {
	sharedCache.removePrefix(dm.name + ":")

	col := dm.collection()
	if col == nil {
		dm.deferWrite(OpDeleteMany, query, nil, nil)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), bulkTimeout)
	defer cancel()

	if _, err := col.DeleteMany(ctx, query); err != nil {
		dm.deferWrite(OpDeleteMany, query, nil, err)
		return err
	}
	return nil
}

// ClearCache empties the shared cache
func (dm *DataManager[T]) ClearCache() {
	sharedCache.reset()
}

func (dm *DataManager[T]) CacheSize() int {
	return sharedCache.size()
}
