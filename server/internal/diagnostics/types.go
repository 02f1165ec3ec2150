package diagnostics

import (
	"time"
)

type OperationType string

const (
	OperationRead  OperationType = "read"
	OperationWrite OperationType = "write"
)

type WatcherEventType string

const (
	EventAdd       WatcherEventType = "add"
	EventChange    WatcherEventType = "change"
	EventUnlink    WatcherEventType = "unlink"
	EventAddDir    WatcherEventType = "addDir"
	EventUnlinkDir WatcherEventType = "unlinkDir"
	EventError     WatcherEventType = "error"
)

type ParsingErrorType string

const (
	ErrorSyntax  ParsingErrorType = "syntax"
	ErrorParsing ParsingErrorType = "parsing"
	ErrorRuntime ParsingErrorType = "runtime"
)

type WatcherStatus string

const (
	WatcherActive WatcherStatus = "active"
	WatcherError  WatcherStatus = "error"
)

// Details carries free-form context attached to a record.
type Details map[string]any

// DetailCollectionUID is the details key naming the collection a record belongs to.
const DetailCollectionUID = "collectionUid"

// Operation is a file read or write performed by the sync engine.
type Operation struct {
	ID        string        `json:"id"`
	Type      OperationType `json:"type"`
	Path      string        `json:"path"`
	Timestamp time.Time     `json:"timestamp"`
	Details   Details       `json:"details"`
}

// WatcherEvent is a filesystem notification observed under a collection root.
type WatcherEvent struct {
	ID            string           `json:"id"`
	Type          WatcherEventType `json:"type"`
	Path          string           `json:"path"`
	CollectionUID string           `json:"collectionUid,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
	Details       Details          `json:"details"`
}

// ParsingError records a file that could not be turned into a valid model.
type ParsingError struct {
	ID        string           `json:"id"`
	Type      ParsingErrorType `json:"type"`
	Path      string           `json:"path"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Details   Details          `json:"details"`
}

// WatcherInfo is the lifecycle state of the watcher of one collection root.
type WatcherInfo struct {
	CollectionUID string        `json:"collectionUid"`
	Status        WatcherStatus `json:"status"`
	StartedAt     time.Time     `json:"startedAt"`
	Error         string        `json:"error,omitempty"`
}

// ResourceSample is the latest process resource usage reading.
type ResourceSample struct {
	CPU         float64   `json:"cpu"`
	Memory      uint64    `json:"memory"`
	PID         int       `json:"pid"`
	Uptime      float64   `json:"uptime"`
	LastUpdated time.Time `json:"lastUpdated"`
}
