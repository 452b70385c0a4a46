package core

import "simcore/pkg/model"

type (
	ID           = model.ID
	Datum        = model.Datum
	DataSet      = model.DataSet
	File         = model.File
	Record       = model.Record
	BaseRecord   = model.BaseRecord
	Run          = model.Run
	Relationship = model.Relationship
	Document     = model.Document
	RecordLoader = model.RecordLoader
	DataStore    = model.DataStore

	SchemaViolationError      = model.SchemaViolationError
	NotFoundError             = model.NotFoundError
	UnresolvedIdentifierError = model.UnresolvedIdentifierError
)

const (
	ScopeLocal  = model.ScopeLocal
	ScopeGlobal = model.ScopeGlobal

	RunType = model.RunType
)
