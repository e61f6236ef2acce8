package controllers

import "encoding/json"

// writeReq is the body of /v1/state/set and /v1/state/delete.
type writeReq struct {
	Store     string `json:"store"`
	Partition int32  `json:"partition"`
	CF        string `json:"cf"`
	Prefix    string `json:"prefix"`
	Key       string `json:"key"`
	// Value is ignored by delete.
	Value json.RawMessage `json:"value"`
	// ProcessedOffset is recorded with the write; nil leaves the stored one as is.
	ProcessedOffset *int64 `json:"processed_offset"`
}

// getResp is the body returned by /v1/state/get.
type getResp struct {
	Key   string          `json:"key"`
	Found bool            `json:"found"`
	Value json.RawMessage `json:"value,omitempty"`
}

// scanRespItem is one stored entry; keys and values are raw bytes.
type scanRespItem struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// offsetsResp reports the durable offsets of a partition.
type offsetsResp struct {
	Store           string `json:"store"`
	Partition       int32  `json:"partition"`
	ProcessedOffset *int64 `json:"processed_offset,omitempty"`
	ChangelogOffset *int64 `json:"changelog_offset,omitempty"`
	ChangelogLast   uint64 `json:"changelog_last"`
}

// changelogRespItem is one changelog record.
type changelogRespItem struct {
	Offset    uint64            `json:"offset"`
	CF        string            `json:"cf,omitempty"`
	Key       []byte            `json:"key"`
	Value     []byte            `json:"value,omitempty"`
	Tombstone bool              `json:"tombstone"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// countResp reports how many records an operation touched.
type countResp struct {
	Count int `json:"count"`
}
