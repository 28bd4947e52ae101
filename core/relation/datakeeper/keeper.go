package datakeeper

import (
	"github.com/sushant-115/gojorel/core/domain"
	"github.com/sushant-115/gojorel/core/serialization"
)

// DataKeeper is the part of the keeper contract shared by object and
// collection keepers. The load state of a virtual end-point works against it.
type DataKeeper interface {
	EndPointID() domain.RelationEndPointID
	HasDataChanged() bool

	RegisterOriginalOppositeEndPoint(ep OppositeEndPoint) error
	// SynchronizeOppositeEndPoint registers a real opposite that was loaded
	// after the keeper and makes it part of the current data as well.
	SynchronizeOppositeEndPoint(ep OppositeEndPoint) error
	UnregisterOriginalOppositeEndPoint(ep OppositeEndPoint) error
	RegisterOriginalItemWithoutEndPoint(id domain.ObjectID) error
	UnregisterOriginalItemWithoutEndPoint(id domain.ObjectID) error
	RegisterCurrentOppositeEndPoint(ep OppositeEndPoint) error
	UnregisterCurrentOppositeEndPoint(ep OppositeEndPoint) error

	CurrentOppositeEndPoints() []domain.RelationEndPointID
	OriginalOppositeEndPoints() []domain.RelationEndPointID
	OriginalItemsWithoutEndPoints() []domain.ObjectID

	Commit()
	Rollback()

	serialization.Serializable
}

var (
	_ DataKeeper = (*ObjectDataKeeper)(nil)
	_ DataKeeper = (*CollectionDataKeeper)(nil)
)
