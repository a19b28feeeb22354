package handlers

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/smboffload/internal/adapter/smb/types"
	"github.com/marmos91/smboffload/internal/logger"
	"github.com/marmos91/smboffload/pkg/metrics"
	"github.com/marmos91/smboffload/pkg/offload"
	"github.com/marmos91/smboffload/pkg/offload/kvstore"
)

// Options configures a Handler.
type Options struct {
	// Store selects the offload token store backend.
	Store kvstore.Options

	// Metrics records token registry activity. Optional.
	Metrics *offload.Metrics

	// RequestMetrics records per-command request metrics. Optional.
	RequestMetrics metrics.SMBMetrics

	// Copier performs the data movement for copychunk and duplicate
	// extents. Without one those FSCTLs return STATUS_NOT_SUPPORTED.
	Copier ExtentCopier
}

// Handler manages the offload IOCTLs for one connection. It owns the
// offload registry context and the table of open files.
type Handler struct {
	StartTime time.Time

	offload *offload.Context
	copier  ExtentCopier
	metrics metrics.SMBMetrics

	// Open files
	files      sync.Map // string(fileID) -> *OpenFile
	nextFileID atomic.Uint64
}

// OpenFile represents an open file handle. It owns the offload tokens
// issued for it; closing the handle through the Handler releases them.
type OpenFile struct {
	FileID    [16]byte
	TreeID    uint32
	SessionID uint64
	Path      string
	OpenTime  time.Time

	offloadLinks offload.LinkSet
}

// OffloadRef implements offload.Handle. The persistent and volatile halves
// of the FileID are the handle's identity.
func (f *OpenFile) OffloadRef() offload.HandleRef {
	return offload.HandleRef{
		PersistentID: binary.LittleEndian.Uint64(f.FileID[0:8]),
		VolatileID:   binary.LittleEndian.Uint64(f.FileID[8:16]),
	}
}

// OffloadLinks implements offload.Handle.
func (f *OpenFile) OffloadLinks() *offload.LinkSet {
	return &f.offloadLinks
}

// fileIDFromRef rebuilds the 16-byte FileID for a handle reference.
func fileIDFromRef(ref offload.HandleRef) [16]byte {
	var id [16]byte
	binary.LittleEndian.PutUint64(id[0:8], ref.PersistentID)
	binary.LittleEndian.PutUint64(id[8:16], ref.VolatileID)
	return id
}

// NewHandler creates a handler with its own offload registry context.
func NewHandler(opts Options) (*Handler, error) {
	ctx, err := offload.InitContext(nil,
		offload.WithStoreOptions(opts.Store),
		offload.WithMetrics(opts.Metrics),
	)
	if err != nil {
		return nil, err
	}

	return &Handler{
		StartTime: time.Now(),
		offload:   ctx,
		copier:    opts.Copier,
		metrics:   opts.RequestMetrics,
	}, nil
}

// Offload returns the handler's registry context.
func (h *Handler) Offload() *offload.Context {
	return h.offload
}

// GenerateFileID generates a new unique file ID: a monotonically increasing
// persistent half and a random volatile half.
func (h *Handler) GenerateFileID() [16]byte {
	var fileID [16]byte
	binary.LittleEndian.PutUint64(fileID[0:8], h.nextFileID.Add(1))
	volatile := uuid.New()
	copy(fileID[8:16], volatile[:8])
	return fileID
}

// Open registers a new open file. It stands in for the CREATE path, which
// lives outside the offload handlers.
func (h *Handler) Open(sessionID uint64, treeID uint32, path string) *OpenFile {
	f := &OpenFile{
		FileID:    h.GenerateFileID(),
		TreeID:    treeID,
		SessionID: sessionID,
		Path:      path,
		OpenTime:  time.Now(),
	}
	h.files.Store(string(f.FileID[:]), f)
	h.updateOpenFiles()

	logger.Debug("Open file registered", logger.FileID(f.FileID), "path", path)
	return f
}

// GetOpenFile retrieves an open file by FileID
func (h *Handler) GetOpenFile(fileID [16]byte) (*OpenFile, bool) {
	v, ok := h.files.Load(string(fileID[:]))
	if !ok {
		return nil, false
	}
	return v.(*OpenFile), true
}

// OpenFileCount returns the number of open files.
func (h *Handler) OpenFileCount() int {
	n := 0
	h.files.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (h *Handler) updateOpenFiles() {
	if h.metrics != nil {
		h.metrics.SetOpenFiles(h.OpenFileCount())
	}
}

func (h *Handler) recordRequest(command, fsctl string, start time.Time, status string) {
	if h.metrics != nil {
		h.metrics.RecordRequest(command, fsctl, time.Since(start), status)
	}
}

func (h *Handler) recordBytesCopied(ctlCode uint32, n uint64) {
	if h.metrics != nil && n > 0 {
		h.metrics.RecordBytesCopied(types.FsctlName(ctlCode), n)
	}
}

// Shutdown closes every open file and then the registry context.
func (h *Handler) Shutdown() error {
	closed := h.CloseAll()
	logger.Debug("Handler shutdown", "closed_files", closed)
	return h.offload.Close()
}
