package models

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedRecord = errors.New("malformed record")
	ErrStore           = errors.New("store error")
	ErrConfiguration   = errors.New("configuration error")
)

// MalformedRecordError means a row is missing a required field or carries an
// unparseable required value. The row is skipped; the batch continues.
type MalformedRecordError struct {
	ListingID string
	Field     string
	Reason    string
}

func (e *MalformedRecordError) Error() string {
	if e.ListingID == "" {
		return fmt.Sprintf("malformed record: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("malformed record %s: %s %s", e.ListingID, e.Field, e.Reason)
}

func (e *MalformedRecordError) Is(target error) bool { return target == ErrMalformedRecord }

// StoreError wraps a connectivity, transaction or constraint failure raised
// while upserting a listing or sweeping stale listings.
type StoreError struct {
	Op        string
	ListingID string
	Err       error
}

func (e *StoreError) Error() string {
	if e.ListingID == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.ListingID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// ConfigError is a missing or invalid run parameter. It is fatal and is
// raised before any store access.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }
