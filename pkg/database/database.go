// Package database provides the MongoDB connection and the music data
// stores. Writes made while offline are queued and replayed on reconnect.
package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/PancyMusicGo/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collections
const (
	PermissionsCollection = "music_permissions"
	SettingsCollection    = "music_settings"
)

// Reconnect backoff bounds
const (
	minReconnectDelay = 15 * time.Second
	maxReconnectDelay = 2 * time.Minute
)

// WriteOp is the kind of a queued offline write
type WriteOp string

const (
	OpSet        WriteOp = "set"
	OpDelete     WriteOp = "delete"
	OpDeleteMany WriteOp = "deleteMany"
)

// QueuedOperation is a write made while the database was unreachable
type QueuedOperation struct {
	CollectionName string
	Query          bson.M
	Operation      WriteOp
	Data           interface{}
}

// Database manages the MongoDB connection
type Database struct {
	url, name string

	mu           sync.RWMutex
	client       *mongo.Client
	db           *mongo.Database
	connected    bool
	reconnecting bool
	collections  map[string]*mongo.Collection

	queueMu    sync.Mutex
	writeQueue []QueuedOperation

	stop     chan struct{}
	stopOnce sync.Once
}

var (
	database *Database
	dbOnce   sync.Once
)

// Init connects the global database. On failure the instance is still
// returned and keeps reconnecting in the background.
func Init(mongoURL, dbName string) (*Database, error) {
	var err error
	dbOnce.Do(func() {
		database = NewDatabase()
		err = database.Connect(mongoURL, dbName)
	})
	return database, err
}

// Get returns the global database, nil before Init
func Get() *Database {
	return database
}

func NewDatabase() *Database {
	return &Database{
		stop:        make(chan struct{}),
		collections: make(map[string]*mongo.Collection),
	}
}

// Connect dials MongoDB and verifies the connection with a ping
func (d *Database) Connect(mongoURL, dbName string) error {
	d.mu.Lock()
	d.url, d.name = mongoURL, dbName
	if d.connected {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	logger.System("Intentando conectar a la base de datos...", "DB")
	if err := d.dial(); err != nil {
		logger.Critical(fmt.Sprintf("Fallo al conectar con la base de datos: %v", err), "DB")
		d.startReconnect()
		return err
	}
	return nil
}

func (d *Database) dial() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(d.url).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return err
	}

	d.mu.Lock()
	d.client = client
	d.db = client.Database(d.name)
	d.collections = make(map[string]*mongo.Collection)
	d.connected = true
	d.mu.Unlock()

	logger.Success("Conectado exitosamente a la base de datos.", "DB")

	go d.ensureIndexes()
	go d.syncOfflineWrites()
	return nil
}

// startReconnect retries dial with a doubling delay until it succeeds or
// Disconnect is called. Only one loop runs at a time.
func (d *Database) startReconnect() {
	d.mu.Lock()
	if d.reconnecting {
		d.mu.Unlock()
		return
	}
	d.reconnecting = true
	if d.connected {
		d.connected = false
		logger.Warn("Se perdió la conexión con la base de datos. Activando modo offline.", "DB")
	}
	d.mu.Unlock()

	go func() {
		defer func() {
			d.mu.Lock()
			d.reconnecting = false
			d.mu.Unlock()
		}()

		delay := minReconnectDelay
		for {
			select {
			case <-d.stop:
				return
			case <-time.After(delay):
			}

			logger.Info("Intentando reconectar a la base de datos...", "DB")
			if err := d.dial(); err == nil {
				return
			}
			delay = min(delay*2, maxReconnectDelay)
			logger.Warn(fmt.Sprintf("Reconexión fallida, siguiente intento en %s", delay), "DB")
		}
	}()
}

// ensureIndexes keeps one permission row per member and one settings
// document per guild.
func (d *Database) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexes := map[string]bson.D{
		PermissionsCollection: {{Key: "guildId", Value: 1}, {Key: "userId", Value: 1}},
		SettingsCollection:    {{Key: "guildId", Value: 1}},
	}
	for name, keys := range indexes {
		col := d.GetCollection(name)
		if col == nil {
			return
		}
		_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			logger.Warn(fmt.Sprintf("No se pudo crear el índice de '%s': %v", name, err), "DB")
		}
	}
}

// Connected reports whether the database is reachable
func (d *Database) Connected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Disconnect stops reconnecting and closes the client
func (d *Database) Disconnect() error {
	d.stopOnce.Do(func() { close(d.stop) })

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.client.Disconnect(ctx); err != nil {
		return err
	}
	d.connected = false
	logger.Warn("La base de datos ha sido desconectada", "DB")
	return nil
}

// Ping measures the database response time
func (d *Database) Ping() (time.Duration, error) {
	d.mu.RLock()
	client, connected := d.client, d.connected
	d.mu.RUnlock()

	if !connected || client == nil {
		return 0, ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	err := client.Ping(ctx, readpref.Primary())
	return time.Since(start), err
}

// GetStatus returns a display label and whether the database answers a
// ping. A failed ping starts the reconnect loop.
func (d *Database) GetStatus() (string, bool) {
	if _, err := d.Ping(); err != nil {
		if d.Connected() {
			d.startReconnect()
		}
		return "🔴 | Desconectado", false
	}
	return "🟢 | En linea", true
}

// GetCollection returns a collection handle, nil while offline
func (d *Database) GetCollection(name string) *mongo.Collection {
	d.mu.RLock()
	col, ok := d.collections[name]
	db := d.db
	d.mu.RUnlock()
	if ok {
		return col
	}
	if db == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	col = db.Collection(name)
	d.collections[name] = col
	return col
}

// AddToWriteQueue adds an operation to the offline write queue
func (d *Database) AddToWriteQueue(op QueuedOperation) {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	d.writeQueue = append(d.writeQueue, op)
}

// PendingWrites returns the number of queued offline operations
func (d *Database) PendingWrites() int {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	return len(d.writeQueue)
}

func (d *Database) drainQueue() []QueuedOperation {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	ops := d.writeQueue
	d.writeQueue = nil
	return ops
}

// apply replays one queued write
func (d *Database) apply(op QueuedOperation) error {
	col := d.GetCollection(op.CollectionName)
	if col == nil {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch op.Operation {
	case OpSet:
		_, err = col.UpdateOne(ctx, op.Query, bson.M{"$set": op.Data}, options.Update().SetUpsert(true))
	case OpDelete:
		_, err = col.DeleteOne(ctx, op.Query)
	case OpDeleteMany:
		_, err = col.DeleteMany(ctx, op.Query)
	default:
		err = fmt.Errorf("operación desconocida %q", op.Operation)
	}
	return err
}

// syncOfflineWrites replays the queue in order. Failed writes go back to
// the queue for the next reconnect.
func (d *Database) syncOfflineWrites() {
	ops := d.drainQueue()
	if len(ops) == 0 {
		return
	}
	logger.System(fmt.Sprintf("Sincronizando %d operaciones pendientes con la DB...", len(ops)), "DB-Sync")

	var failed []QueuedOperation
	for _, op := range ops {
		if err := d.apply(op); err != nil {
			logger.Error(fmt.Sprintf("Error al sincronizar '%s' en '%s': %v", op.Operation, op.CollectionName, err), "DB-Sync")
			failed = append(failed, op)
		}
	}

	if len(failed) == 0 {
		logger.Success("Sincronización completada exitosamente.", "DB-Sync")
		return
	}
	d.queueMu.Lock()
	d.writeQueue = append(failed, d.writeQueue...)
	d.queueMu.Unlock()
	logger.Warn(fmt.Sprintf("%d operaciones no pudieron sincronizarse y se reintentarán.", len(failed)), "DB-Sync")
}

// Client returns the underlying MongoDB client
func (d *Database) Client() *mongo.Client {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.client
}

// DB returns the underlying MongoDB database
func (d *Database) DB() *mongo.Database {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}
