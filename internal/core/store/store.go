package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"recipe-keeper/internal/core/migration"
	"recipe-keeper/internal/core/recipe"
	"recipe-keeper/internal/pkg/common"

	"go.uber.org/zap"
)

// DefaultKey 持久化食譜陣列使用的鍵
const DefaultKey = "SavedRecipes"

// BlobStore 以鍵存放整段字串的持久化儲存
type BlobStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// ImageRemover 管理私有圖片快取
type ImageRemover interface {
	Owns(uri string) bool
	Remove(uri string) error
}

// Listener 每次變動後收到完整的食譜集合
type Listener func(recipes []recipe.Recipe)

// RecipeStore 食譜集合與其持久化
//
// 所有變動都在同一把鎖內完成「修改記憶體、寫入儲存」，並取得遞增的序號。
// 通知在不持有任何鎖的情況下依序號送出，因此與變動順序一致。
// Listener 可以讀取 store，但不能在回呼中再呼叫會變動 store 的方法。
type RecipeStore struct {
	blobs  BlobStore
	key    string
	images ImageRemover

	mu      sync.Mutex
	recipes []recipe.Recipe
	seq     uint64

	notifyMu  sync.Mutex
	turn      *sync.Cond
	delivered uint64
	listeners map[int]Listener
	nextID    int
}

// New 建立食譜 store；images 為 nil 時刪除食譜不處理圖片
func New(blobs BlobStore, key string, images ImageRemover) *RecipeStore {
	if key == "" {
		key = DefaultKey
	}
	s := &RecipeStore{
		blobs:     blobs,
		key:       key,
		images:    images,
		recipes:   []recipe.Recipe{},
		listeners: map[int]Listener{},
	}
	s.turn = sync.NewCond(&s.notifyMu)
	return s
}

// Load 讀取持久化的食譜並遷移到目前版本
//
// 內容無法解析時以空集合取代，不會阻擋啟動；只有讀取儲存本身失敗時回傳錯誤。
// 有任何紀錄需要遷移時立即寫回，回傳值表示是否已寫回。
func (s *RecipeStore) Load(ctx context.Context) (bool, error) {
	raw, ok, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		return false, fmt.Errorf("read recipes: %w", err)
	}

	loaded := []recipe.Recipe{}
	needsWriteBack := false
	if ok && raw != "" {
		var records []any
		if err := common.ParseJSON(raw, &records); err != nil {
			common.LogError("Stored recipes are corrupt, starting with an empty collection",
				zap.String("key", s.key),
				zap.Error(err),
			)
			s.backupCorrupt(ctx, raw)
		} else {
			for _, rec := range records {
				if migration.NeedsMigration(rec) {
					needsWriteBack = true
				}
				loaded = append(loaded, migration.ToRecipe(rec))
			}
		}
	}

	s.mu.Lock()
	s.recipes = loaded
	wroteBack := false
	if needsWriteBack {
		if err := s.persistLocked(ctx); err != nil {
			common.LogWarn("Failed to write back migrated recipes", zap.Error(err))
		} else {
			wroteBack = true
			common.LogInfo("Migrated recipes written back", zap.Int("count", len(loaded)))
		}
	}
	s.notifyAndUnlock()

	return wroteBack, nil
}

// backupCorrupt 保留無法解析的原始內容，避免之後的寫入直接覆蓋
func (s *RecipeStore) backupCorrupt(ctx context.Context, raw string) {
	if err := s.blobs.Set(ctx, s.key+".corrupt", raw); err != nil {
		common.LogWarn("Failed to back up corrupt recipes", zap.Error(err))
	}
}

// Add 新增食譜並在回傳前寫入儲存，回傳實際存入的食譜
func (s *RecipeStore) Add(ctx context.Context, r recipe.Recipe) (recipe.Recipe, error) {
	stored := r.Clone()

	s.mu.Lock()
	if s.indexLocked(stored.ID) >= 0 {
		s.mu.Unlock()
		return recipe.Recipe{}, common.NewValidationError(fmt.Sprintf("recipe %s already exists", stored.ID))
	}

	s.recipes = append(s.recipes, stored)
	if err := s.persistLocked(ctx); err != nil {
		s.recipes = s.recipes[:len(s.recipes)-1]
		s.mu.Unlock()
		return recipe.Recipe{}, err
	}
	s.notifyAndUnlock()

	return stored.Clone(), nil
}

// Update 以相同 ID 取代食譜；找不到時不做任何事
func (s *RecipeStore) Update(ctx context.Context, r recipe.Recipe) error {
	s.mu.Lock()
	i := s.indexLocked(r.ID)
	if r.ID == "" || i < 0 {
		s.mu.Unlock()
		return nil
	}

	previous := s.recipes[i]
	s.recipes[i] = r.Clone()
	if err := s.persistLocked(ctx); err != nil {
		s.recipes[i] = previous
		s.mu.Unlock()
		return err
	}
	s.notifyAndUnlock()
	return nil
}

// Delete 刪除食譜；快取目錄內的圖片會先被刪除，失敗只記錄不影響刪除紀錄
func (s *RecipeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}

	target := s.recipes[i]
	s.removeImage(target)

	previous := s.recipes
	s.recipes = append(append([]recipe.Recipe{}, s.recipes[:i]...), s.recipes[i+1:]...)
	if err := s.persistLocked(ctx); err != nil {
		s.recipes = previous
		s.mu.Unlock()
		return err
	}
	s.notifyAndUnlock()
	return nil
}

func (s *RecipeStore) removeImage(r recipe.Recipe) {
	if s.images == nil || r.ImageURI == nil || !s.images.Owns(*r.ImageURI) {
		return
	}
	if err := s.images.Remove(*r.ImageURI); err != nil {
		common.LogWarn("Failed to delete cached recipe image",
			zap.String("recipe_id", r.ID),
			zap.String("image_uri", *r.ImageURI),
			zap.Error(err),
		)
	}
}

// GetByID 回傳食譜的副本
func (s *RecipeStore) GetByID(id string) (recipe.Recipe, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return recipe.Recipe{}, false
	}
	return s.recipes[i].Clone(), true
}

// GetAll 依加入順序回傳所有食譜的副本
func (s *RecipeStore) GetAll() []recipe.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Count 食譜數量
func (s *RecipeStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recipes)
}

// Subscribe 註冊變動通知，回傳取消註冊的函式
func (s *RecipeStore) Subscribe(fn Listener) func() {
	s.notifyMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.notifyMu.Lock()
			delete(s.listeners, id)
			s.notifyMu.Unlock()
		})
	}
}

// notifyAndUnlock 為這次變動編號並取得快照，釋放資料鎖後依序通知所有 listener
//
// 呼叫端必須持有 s.mu。序號 n 的通知要等 n-1 送完才開始；等待與回呼期間都不持有 s.mu。
func (s *RecipeStore) notifyAndUnlock() {
	s.seq++
	seq := s.seq
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notifyMu.Lock()
	for s.delivered != seq-1 {
		s.turn.Wait()
	}
	listeners := s.listenersLocked()
	s.notifyMu.Unlock()

	defer func() {
		s.notifyMu.Lock()
		s.delivered = seq
		s.turn.Broadcast()
		s.notifyMu.Unlock()
	}()
	for _, fn := range listeners {
		fn(cloneAll(snapshot))
	}
}

// listenersLocked 依註冊順序回傳 listener，呼叫端必須持有 s.notifyMu
func (s *RecipeStore) listenersLocked() []Listener {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}

func (s *RecipeStore) snapshotLocked() []recipe.Recipe {
	return cloneAll(s.recipes)
}

func cloneAll(in []recipe.Recipe) []recipe.Recipe {
	out := make([]recipe.Recipe, 0, len(in))
	for _, r := range in {
		out = append(out, r.Clone())
	}
	return out
}

func (s *RecipeStore) indexLocked(id string) int {
	for i, r := range s.recipes {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// persistLocked 將整個集合寫成單一 JSON 陣列，呼叫端必須持有 s.mu
func (s *RecipeStore) persistLocked(ctx context.Context) error {
	data, err := common.ToJSON(s.recipes)
	if err != nil {
		return fmt.Errorf("encode recipes: %w", err)
	}
	if err := s.blobs.Set(ctx, s.key, data); err != nil {
		common.LogError("Failed to persist recipes", zap.String("key", s.key), zap.Error(err))
		return fmt.Errorf("persist recipes: %w", err)
	}
	return nil
}
