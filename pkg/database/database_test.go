package database

import (
	"fmt"
	"sync"
	"testing"

	"github.com/PancyStudios/PancyMusicGo/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
)

// memStore matches documents on the string fields of a query.
type memStore[T any] struct {
	mu   sync.Mutex
	docs map[string]*T
	keys func(*T) bson.M
}

func newMemStore[T any](keys func(*T) bson.M) *memStore[T] {
	return &memStore[T]{docs: make(map[string]*T), keys: keys}
}

func (s *memStore[T]) matches(doc *T, query bson.M) bool {
	fields := s.keys(doc)
	for k, v := range query {
		if fields[k] != v {
			return false
		}
	}
	return true
}

func (s *memStore[T]) Get(query bson.M) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		if s.matches(d, query) {
			return d, nil
		}
	}
	return nil, nil
}

func (s *memStore[T]) GetAll(query bson.M) ([]*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*T
	for _, d := range s.docs {
		if s.matches(d, query) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *memStore[T]) Set(query bson.M, data interface{}) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := data.(T)
	if !ok {
		return nil, fmt.Errorf("unexpected type %T", data)
	}
	s.docs[fmt.Sprint(query)] = &doc
	return &doc, nil
}

func (s *memStore[T]) Delete(query bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, d := range s.docs {
		if s.matches(d, query) {
			delete(s.docs, k)
			return nil
		}
	}
	return nil
}

func (s *memStore[T]) DeleteMany(query bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, d := range s.docs {
		if s.matches(d, query) {
			delete(s.docs, k)
		}
	}
	return nil
}

func useMemStores(t *testing.T) (*memStore[models.MusicPermission], *memStore[models.GuildMusicSettings]) {
	t.Helper()
	perms := newMemStore(func(p *models.MusicPermission) bson.M {
		return bson.M{"guildId": p.GuildID, "userId": p.UserID}
	})
	settings := newMemStore(func(s *models.GuildMusicSettings) bson.M {
		return bson.M{"guildId": s.GuildID}
	})
	prevPerms, prevSettings := GlobalPermissionDM, GlobalSettingsDM
	GlobalPermissionDM, GlobalSettingsDM = perms, settings
	t.Cleanup(func() {
		GlobalPermissionDM, GlobalSettingsDM = prevPerms, prevSettings
	})
	return perms, settings
}

func TestPermLevels(t *testing.T) {
	useMemStores(t)

	if got, err := GetPermLevel("g1", "u1"); err != nil || got != models.PermNone {
		t.Fatalf("GetPermLevel() = %v, %v, want %v, nil", got, err, models.PermNone)
	}

	SetPermLevel("g1", "u1", models.PermDJ, "admin")
	SetPermLevel("g1", "u2", models.PermBlacklisted, "admin")
	SetPermLevel("g2", "u1", models.PermAdmin, "admin")

	if got, _ := GetPermLevel("g1", "u1"); got != models.PermDJ {
		t.Errorf("GetPermLevel(g1, u1) = %v, want %v", got, models.PermDJ)
	}

	perms, err := ListPermissions("g1")
	if err != nil {
		t.Fatalf("ListPermissions() returned error: %v", err)
	}
	if len(perms) != 2 || perms[0].UserID != "u1" || perms[1].Level != models.PermBlacklisted {
		t.Errorf("ListPermissions() = %+v", perms)
	}

	SetPermLevel("g1", "u1", models.PermNone, "admin")
	if got, _ := GetPermLevel("g1", "u1"); got != models.PermNone {
		t.Errorf("after reset GetPermLevel() = %v, want %v", got, models.PermNone)
	}
}

func TestPurgeGuild(t *testing.T) {
	perms, _ := useMemStores(t)

	SetPermLevel("g1", "u1", models.PermDJ, "admin")
	SetPermLevel("g1", "u2", models.PermUser, "admin")
	SetPermLevel("g2", "u1", models.PermDJ, "admin")
	SetDJOnly("g1", true)

	if err := PurgeGuild("g1"); err != nil {
		t.Fatalf("PurgeGuild() returned error: %v", err)
	}

	if len(perms.docs) != 1 {
		t.Errorf("remaining permissions = %d, want 1", len(perms.docs))
	}
	if GetGuildSettings("g1").DJOnly {
		t.Error("settings survived the purge")
	}
}

func TestGuildSettings(t *testing.T) {
	useMemStores(t)

	if s := GetGuildSettings("g1"); s.DJOnly || s.DefaultVolume != 0 || s.GuildID != "g1" {
		t.Errorf("default settings = %+v", s)
	}

	SetDJOnly("g1", true)
	SetDefaultVolume("g1", 150)

	s := GetGuildSettings("g1")
	if !s.DJOnly {
		t.Error("DJOnly = false, want true")
	}
	if s.DefaultVolume != 100 {
		t.Errorf("DefaultVolume = %v, want %v", s.DefaultVolume, 100)
	}
}

func TestServicesWithoutManagers(t *testing.T) {
	prevPerms, prevSettings := GlobalPermissionDM, GlobalSettingsDM
	GlobalPermissionDM, GlobalSettingsDM = nil, nil
	defer func() { GlobalPermissionDM, GlobalSettingsDM = prevPerms, prevSettings }()

	if _, err := GetPermLevel("g", "u"); err != ErrPermissionManagerNotInitialized {
		t.Errorf("GetPermLevel() error = %v, want %v", err, ErrPermissionManagerNotInitialized)
	}
	if err := SetDJOnly("g", true); err != ErrSettingsManagerNotInitialized {
		t.Errorf("SetDJOnly() error = %v, want %v", err, ErrSettingsManagerNotInitialized)
	}
	if s := GetGuildSettings("g"); s.GuildID != "g" {
		t.Errorf("GetGuildSettings() = %+v", s)
	}
}

func TestOfflineWritesAreQueued(t *testing.T) {
	db := NewDatabase()
	dm := NewDataManager[models.MusicPermission](PermissionsCollection, db)

	if _, err := dm.Get(bson.M{"guildId": "g1"}); err != ErrNotConnected {
		t.Errorf("Get() error = %v, want %v", err, ErrNotConnected)
	}
	if _, err := dm.Set(bson.M{"guildId": "g1"}, models.MusicPermission{GuildID: "g1"}); err != nil {
		t.Errorf("Set() returned error: %v", err)
	}
	dm.Delete(bson.M{"guildId": "g1", "userId": "u1"})
	dm.DeleteMany(bson.M{"guildId": "g1"})

	if got := db.PendingWrites(); got != 3 {
		t.Errorf("PendingWrites() = %v, want %v", got, 3)
	}
}

func TestCacheKeyIsDeterministic(t *testing.T) {
	dm := NewDataManager[models.MusicPermission](PermissionsCollection, NewDatabase())
	a := dm.cacheKey(bson.M{"guildId": "g1", "userId": "u1"})
	b := dm.cacheKey(bson.M{"userId": "u1", "guildId": "g1"})
	if a != b {
		t.Errorf("cacheKey() = %v and %v, want equal", a, b)
	}
	if a != "music_permissions:{guildId=g1,userId=u1}" {
		t.Errorf("cacheKey() = %v", a)
	}
}

func TestDocCacheEviction(t *testing.T) {
	c := newDocCache()
	c.put("a:1", 1, 2)
	c.put("a:2", 2, 2)
	c.get("a:1")
	c.put("b:3", 3, 2)

	if _, ok := c.get("a:2"); ok {
		t.Error("least recently used entry was not evicted")
	}
	if v, ok := c.get("a:1"); !ok || v != 1 {
		t.Errorf("get(a:1) = %v, %v, want 1, true", v, ok)
	}

	c.removePrefix("a:")
	if _, ok := c.get("a:1"); ok {
		t.Error("removePrefix left a matching key")
	}
	if _, ok := c.get("b:3"); !ok {
		t.Error("removePrefix dropped a non-matching key")
	}
}

func TestSyncOfflineWritesKeepsFailedInOrder(t *testing.T) {
	db := NewDatabase()
	db.AddToWriteQueue(QueuedOperation{CollectionName: PermissionsCollection, Operation: OpSet})
	db.AddToWriteQueue(QueuedOperation{CollectionName: SettingsCollection, Operation: OpDelete})

	db.syncOfflineWrites()

	ops := db.drainQueue()
	if len(ops) != 2 {
		t.Fatalf("queued operations = %v, want %v", len(ops), 2)
	}
	if ops[0].Operation != OpSet || ops[1].Operation != OpDelete {
		t.Errorf("queue order = [%s %s], want [%s %s]", ops[0].Operation, ops[1].Operation, OpSet, OpDelete)
	}
}

func TestOfflineStatus(t *testing.T) {
	db := NewDatabase()
	if _, err := db.Ping(); err != ErrNotConnected {
		t.Errorf("Ping() error = %v, want %v", err, ErrNotConnected)
	}
	if label, ok := db.GetStatus(); ok || label != "🔴 | Desconectado" {
		t.Errorf("GetStatus() = %q, %v, want offline", label, ok)
	}
}

func TestDocCacheReset(t *testing.T) {
	c := newDocCache()
	c.put("a:1", 1, 0)
	c.put("a:1", 2, 0)
	if got := c.size(); got != 1 {
		t.Errorf("size() = %v, want %v", got, 1)
	}
	if v, _ := c.get("a:1"); v != 2 {
		t.Errorf("get(a:1) = %v, want %v", v, 2)
	}
	c.reset()
	if got := c.size(); got != 0 {
		t.Errorf("size() after reset = %v, want %v", got, 0)
	}
}
