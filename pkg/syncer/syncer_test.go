package syncer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
	"github.com/lockbookapp/lockbook-core/pkg/docstore"
	"github.com/lockbookapp/lockbook-core/pkg/docstore/memstore"
	"github.com/lockbookapp/lockbook-core/pkg/syncer"
	"github.com/lockbookapp/lockbook-core/pkg/tree"
)

// fakeServer is an in-process stand-in for syncer.Client, backed by a tree
// of its own. It applies the same CAS rule real servers must (§4.7 step 5):
// an Upsert diff is rejected if the server's current value for that id no
// longer matches the client's believed Old value.
type fakeServer struct {
	mu      sync.Mutex
	files   map[uuid.UUID]tree.File
	docs    map[string][]byte
	nowMs   int64
	overCap bool
	hidden  uuid.UUID // GetUpdates leaves this id out
}

func newFakeServer() *fakeServer {
	return &fakeServer{files: make(map[uuid.UUID]tree.File), docs: make(map[string][]byte), nowMs: 1}
}

func docKey(id uuid.UUID, hmac crypto.HMACDigest) string {
	return id.String() + ":" + string(hmac[:])
}

func (s *fakeServer) GetUpdates(ctx context.Context, sinceMs int64) ([]tree.File, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tree.File
	for _, f := range s.files {
		if f.Value().ID == s.hidden {
			continue
		}
		out = append(out, f)
	}
	s.nowMs++
	return out, s.nowMs, nil
}

func (s *fakeServer) Upsert(ctx context.Context, diffs []syncer.MetadataDiff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overCap {
		return syncer.ErrOutOfSpace
	}
	for _, d := range diffs {
		id := d.New.Value().ID
		current, exists := s.files[id]
		if d.Old == nil {
			if exists {
				return syncer.ErrCASMismatch
			}
		} else if !exists || current.Timestamp() != d.Old.Timestamp() || string(current.Signature) != string(d.Old.Signature) {
			return syncer.ErrCASMismatch
		}
	}
	for _, d := range diffs {
		s.files[d.New.Value().ID] = d.New
	}
	return nil
}

func (s *fakeServer) ChangeDoc(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overCap {
		return syncer.ErrOutOfSpace
	}
	s.docs[docKey(id, hmac)] = data
	return nil
}

func (s *fakeServer) GetDoc(ctx context.Context, id uuid.UUID, hmac crypto.HMACDigest) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[docKey(id, hmac)]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return data, nil
}

func newTestAccount(t *testing.T) crypto.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	return kp
}

func newReconciler(server *fakeServer, actor crypto.KeyPair, deviceID string) *syncer.Reconciler {
	return &syncer.Reconciler{
		Account:  actor,
		DeviceID: deviceID,
		Client:   server,
		Docs:     memstore.New(),
	}
}

// firstSync pushes a brand-new root through to the server and returns the
// resulting base tree and reconciler configured with the root's id.
func firstSync(t *testing.T, server *fakeServer, actor crypto.KeyPair, deviceID string) (*syncer.Reconciler, *tree.MapTree, int64) {
	t.Helper()
	local := tree.NewMapTree()
	lt := tree.NewLazyTree(local, tree.NewKeychain(actor), crypto.EncodePublicKey(actor.Public))
	rootID := uuid.New()
	if _, err := tree.CreateRoot(lt, rootID, actor, time.Now()); err != nil {
		t.Fatalf("CreateRoot() error = %v", err)
	}

	r := newReconciler(server, actor, deviceID)
	r.RootID = rootID

	base := tree.NewMapTree()
	res, err := r.Reconcile(context.Background(), base, local, 0, nil, nil)
	if err != nil {
		t.Fatalf("Reconcile() initial push error = %v", err)
	}
	if !res.ClearLocal {
		t.Fatalf("Reconcile() ClearLocal = false on first sync")
	}
	return r, res.Base, res.LastSyncedMs
}

func TestReconcileUnconflictedPushAndPull(t *testing.T) {
	actor := newTestAccount(t)
	server := newFakeServer()
	r, base, lastSyncedMs := firstSync(t, server, actor, "device-a")

	local := tree.NewMapTree()
	lt := tree.NewLazyTree(tree.NewStagedTree[*tree.MapTree, *tree.MapTree](base, local), tree.NewKeychain(actor), crypto.EncodePublicKey(actor.Public))

	docID := uuid.New()
	if _, err := tree.Create(lt, docID, r.RootID, "todo.md", tree.Document, actor, time.Now()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	ct, hmac, err := tree.WriteDocument(lt, docID, []byte("buy milk"))
	if err != nil {
		t.Fatalf("WriteDocument() error = %v", err)
	}
	raw, err := crypto.MarshalCiphertext(ct)
	if err != nil {
		t.Fatalf("MarshalCiphertext() error = %v", err)
	}
	if err := r.Docs.Insert(context.Background(), docID, hmac, raw); err != nil {
		t.Fatalf("Docs.Insert() error = %v", err)
	}
	f, _ := lt.MaybeFind(docID)
	m := f.Value()
	size := int64(len("buy milk"))
	m.DocumentHMAC = &hmac
	m.DocumentSize = &size
	env, err := crypto.Sign(actor, m, time.Now())
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	lt.Insert(env)

	res, err := r.Reconcile(context.Background(), base, local, lastSyncedMs, nil, nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if !res.ClearLocal {
		t.Errorf("ClearLocal = false, want true")
	}
	merged, ok := res.Base.MaybeFind(docID)
	if !ok {
		t.Fatalf("merged base missing doc %v", docID)
	}
	if merged.Value().DocumentHMAC == nil || *merged.Value().DocumentHMAC != hmac {
		t.Errorf("merged document_hmac mismatch")
	}

	// Fetch from the server's own record to confirm the push actually
	// reached it, not just the returned Result.
	if _, ok := server.files[docID]; !ok {
		t.Errorf("server never received the new document's metadata")
	}
}

// TestReconcileNameConflictReplaysLocalIntentAfterMerge exercises the
// name_hmac row of §4.6.2: the tentative merge step keeps R's name, but the
// reconciler then replays L's conflicting rename intent against the merged
// tree (suffixed on collision), the same secondary-replay pattern the
// parent-conflict row specifies for moves. Net effect: the local rename
// wins unless it is no longer legal, in which case R's name stands.
func TestReconcileNameConflictReplaysLocalIntentAfterMerge(t *testing.T) {
	actor := newTestAccount(t)
	server := newFakeServer()
	r, base, lastSyncedMs := firstSync(t, server, actor, "device-a")

	docID := uuid.New()
	{
		local := tree.NewMapTree()
		lt := tree.NewLazyTree(tree.NewStagedTree[*tree.MapTree, *tree.MapTree](base, local), tree.NewKeychain(actor), crypto.EncodePublicKey(actor.Public))
		if _, err := tree.Create(lt, docID, r.RootID, "notes.md", tree.Document, actor, time.Now()); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		res, err := r.Reconcile(context.Background(), base, local, lastSyncedMs, nil, nil)
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		base, lastSyncedMs = res.Base, res.LastSyncedMs
	}

	// Device A renames and syncs first, landing its name on the server.
	localA := tree.NewMapTree()
	ltA := tree.NewLazyTree(tree.NewStagedTree[*tree.MapTree, *tree.MapTree](base, localA), tree.NewKeychain(actor), crypto.EncodePublicKey(actor.Public))
	if _, err := tree.Rename(ltA, docID, "remote-name.md", actor, time.Now()); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if _, err := r.Reconcile(context.Background(), base, localA, lastSyncedMs, nil, nil); err != nil {
		t.Fatalf("Reconcile() (device A) error = %v", err)
	}

	// Device B, still on the pre-rename base, renames the same file
	// differently and syncs against the now-diverged server.
	rB := newReconciler(server, actor, "device-b")
	rB.RootID = r.RootID
	localB := tree.NewMapTree()
	ltB := tree.NewLazyTree(tree.NewStagedTree[*tree.MapTree, *tree.MapTree](base, localB), tree.NewKeychain(actor), crypto.EncodePublicKey(actor.Public))
	if _, err := tree.Rename(ltB, docID, "local-name.md", actor, time.Now()); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	resB, err := rB.Reconcile(context.Background(), base, localB, lastSyncedMs, nil, nil)
	if err != nil {
		t.Fatalf("Reconcile() (device B) error = %v", err)
	}

	if err := tree.Validate(resB.Base, time.Now()); err != nil {
		t.Errorf("Validate() after merge error = %v", err)
	}

	keychain := tree.NewKeychain(actor)
	mergedLT := tree.NewLazyTree(resB.Base, keychain, crypto.EncodePublicKey(actor.Public))
	name, err := mergedLT.Name(docID)
	if err != nil {
		t.Fatalf("Name() error = %v", err)
	}
	if name != "local-name.md" {
		t.Errorf("merged name = %q, want device B's replayed rename %q", name, "local-name.md")
	}

	children, err := mergedLT.Children(rB.RootID)
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(children) != 1 {
		t.Errorf("name conflicts do not fork a new file, got %d children, want 1", len(children))
	}
}

func TestReconcileDocumentConflictMaterializesSibling(t *testing.T) {
	actor := newTestAccount(t)
	server := newFakeServer()
	r, base, lastSyncedMs := firstSync(t, server, actor, "device-a")

	docID := uuid.New()
	{
		local := tree.NewMapTree()
		lt := tree.NewLazyTree(tree.NewStagedTree[*tree.MapTree, *tree.MapTree](base, local), tree.NewKeychain(actor), crypto.EncodePublicKey(actor.Public))
		if _, err := tree.Create(lt, docID, r.RootID, "shared.md", tree.Document, actor, time.Now()); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ct, hmac, err := tree.WriteDocument(lt, docID, []byte("v0"))
		if err != nil {
			t.Fatalf("WriteDocument() error = %v", err)
		}
		raw, _ := crypto.MarshalCiphertext(ct)
		if err := r.Docs.Insert(context.Background(), docID, hmac, raw); err != nil {
			t.Fatalf("Docs.Insert() error = %v", err)
		}
		f, _ := lt.MaybeFind(docID)
		m := f.Value()
		size := int64(2)
		m.DocumentHMAC = &hmac
		m.DocumentSize = &size
		env, err := crypto.Sign(actor, m, time.Now())
		if err != nil {
			t.Fatalf("Sign() error = %v", err)
		}
		lt.Insert(env)
		res, err := r.Reconcile(context.Background(), base, local, lastSyncedMs, nil, nil)
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		base, lastSyncedMs = res.Base, res.LastSyncedMs
	}

	writeBody := func(reconciler *syncer.Reconciler, tr *tree.MapTree, body string) *tree.MapTree {
		local := tree.NewMapTree()
		lt := tree.NewLazyTree(tree.NewStagedTree[*tree.MapTree, *tree.MapTree](tr, local), tree.NewKeychain(actor), crypto.EncodePublicKey(actor.Public))
		ct, hmac, err := tree.WriteDocument(lt, docID, []byte(body))
		if err != nil {
			t.Fatalf("WriteDocument() error = %v", err)
		}
		raw, _ := crypto.MarshalCiphertext(ct)
		if err := reconciler.Docs.Insert(context.Background(), docID, hmac, raw); err != nil {
			t.Fatalf("Docs.Insert() error = %v", err)
		}
		f, _ := lt.MaybeFind(docID)
		m := f.Value()
		size := int64(len(body))
		m.DocumentHMAC = &hmac
		m.DocumentSize = &size
		env, err := crypto.Sign(actor, m, time.Now())
		if err != nil {
			t.Fatalf("Sign() error = %v", err)
		}
		lt.Insert(env)
		return local
	}

	localA := writeBody(r, base, "from A")
	resA, err := r.Reconcile(context.Background(), base, localA, lastSyncedMs, nil, nil)
	if err != nil {
		t.Fatalf("Reconcile() (device A) error = %v", err)
	}

	rB := newReconciler(server, actor, "device-b")
	rB.RootID = r.RootID
	localB := writeBody(rB, base, "from B")
	resB, err := rB.Reconcile(context.Background(), base, localB, lastSyncedMs, nil, nil)
	if err != nil {
		t.Fatalf("Reconcile() (device B) error = %v", err)
	}
	_ = resA

	keychain := tree.NewKeychain(actor)
	mergedLT := tree.NewLazyTree(resB.Base, keychain, crypto.EncodePublicKey(actor.Public))
	children, err := mergedLT.Children(rB.RootID)
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected root to gain a conflict sibling, got %d children, want 2", len(children))
	}

	var conflictID uuid.UUID
	for _, id := range children {
		if id != docID {
			conflictID = id
		}
	}
	if conflictID == uuid.Nil {
		t.Fatalf("no conflict sibling found among children")
	}
	name, err := mergedLT.Name(conflictID)
	if err != nil {
		t.Fatalf("Name() error = %v", err)
	}
	if name != "shared.md-conflict-device-b" {
		t.Errorf("conflict sibling name = %q, want %q", name, "shared.md-conflict-device-b")
	}
}

func TestReconcileStructuralRepairAdoptsOrphan(t *testing.T) {
	actor := newTestAccount(t)
	server := newFakeServer()
	r, base, lastSyncedMs := firstSync(t, server, actor, "device-a")

	folderID := uuid.New()
	childID := uuid.New()
	{
		local := tree.NewMapTree()
		lt := tree.NewLazyTree(tree.NewStagedTree[*tree.MapTree, *tree.MapTree](base, local), tree.NewKeychain(actor), crypto.EncodePublicKey(actor.Public))
		if _, err := tree.Create(lt, folderID, r.RootID, "folder", tree.Folder, actor, time.Now()); err != nil {
			t.Fatalf("Create(folder) error = %v", err)
		}
		if _, err := tree.Create(lt, childID, folderID, "child.md", tree.Document, actor, time.Now()); err != nil {
			t.Fatalf("Create(child) error = %v", err)
		}
		res, err := r.Reconcile(context.Background(), base, local, lastSyncedMs, nil, nil)
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		base, lastSyncedMs = res.Base, res.LastSyncedMs
	}

	// Delete the folder directly in the server's backing store without
	// going through Upsert's normal diff (simulating a prior sync round
	// that deleted it out from under a stale local edit), then force the
	// next pull to see a tree missing folderID.
	server.mu.Lock()
	delete(server.files, folderID)
	server.mu.Unlock()

	local := tree.NewMapTree()
	res, err := r.Reconcile(context.Background(), base, local, lastSyncedMs, nil, nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if err := tree.Validate(res.Base, time.Now()); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	f, ok := res.Base.MaybeFind(childID)
	if !ok {
		t.Fatalf("child missing from repaired tree")
	}
	if f.Value().Parent != r.RootID {
		t.Errorf("orphan child parent = %v, want root %v", f.Value().Parent, r.RootID)
	}
}

func TestReconcileExhaustsRetriesOnPersistentCASMismatch(t *testing.T) {
	actor := newTestAccount(t)
	server := newFakeServer()
	r, base, lastSyncedMs := firstSync(t, server, actor, "device-a")

	// A server stub whose GetUpdates never reflects the true state, so
	// every Upsert a real reconcile attempts collides forever.
	docID := uuid.New()
	local := tree.NewMapTree()
	lt := tree.NewLazyTree(tree.NewStagedTree[*tree.MapTree, *tree.MapTree](base, local), tree.NewKeychain(actor), crypto.EncodePublicKey(actor.Public))
	if _, err := tree.Create(lt, docID, r.RootID, "a.md", tree.Document, actor, time.Now()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Plant a conflicting record directly so the first Upsert attempt's
	// CAS check on docID always fails, regardless of retries.
	rogue, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	f, _ := lt.MaybeFind(docID)
	m := f.Value()
	rogueEnv, err := crypto.Sign(rogue, m, time.Now())
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	server.mu.Lock()
	server.files[docID] = rogueEnv
	server.hidden = docID
	server.mu.Unlock()

	_, err = r.Reconcile(context.Background(), base, local, lastSyncedMs, nil, nil)
	if err != syncer.ReReadRequired {
		t.Errorf("Reconcile() error = %v, want ReReadRequired", err)
	}
}

func TestReconcileCancelledUpFrontReportsNoProgress(t *testing.T) {
	actor := newTestAccount(t)
	server := newFakeServer()
	r, base, lastSyncedMs := firstSync(t, server, actor, "device-a")

	local := tree.NewMapTree()
	var events []syncer.Progress
	progress := func(p syncer.Progress) { events = append(events, p) }
	cancelled := func() bool { return true }

	_, err := r.Reconcile(context.Background(), base, local, lastSyncedMs, progress, cancelled)
	if err != syncer.ErrCancelled {
		t.Errorf("Reconcile() error = %v, want ErrCancelled", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no progress events before the first cancellation check fires, got %d", len(events))
	}
}

func TestReconcileSurfacesOutOfSpace(t *testing.T) {
	actor := newTestAccount(t)
	server := newFakeServer()
	r, base, lastSyncedMs := firstSync(t, server, actor, "device-a")

	local := tree.NewMapTree()
	lt := tree.NewLazyTree(tree.NewStagedTree[*tree.MapTree, *tree.MapTree](base, local), tree.NewKeychain(actor), crypto.EncodePublicKey(actor.Public))
	if _, err := tree.Create(lt, uuid.New(), r.RootID, "x.md", tree.Document, actor, time.Now()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	server.mu.Lock()
	server.overCap = true
	server.mu.Unlock()

	_, err := r.Reconcile(context.Background(), base, local, lastSyncedMs, nil, nil)
	if err != syncer.OutOfSpace {
		t.Errorf("Reconcile() error = %v, want OutOfSpace", err)
	}
}
