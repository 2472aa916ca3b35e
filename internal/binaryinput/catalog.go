package binaryinput

import "github.com/sweeney/bi-sensor/internal/bacnet"

var (
	requiredProperties = []bacnet.PropertyID{
		bacnet.PropObjectIdentifier,
		bacnet.PropObjectName,
		bacnet.PropObjectType,
		bacnet.PropPresentValue,
		bacnet.PropStatusFlags,
		bacnet.PropEventState,
		bacnet.PropOutOfService,
		bacnet.PropPolarity,
	}
	optionalProperties = []bacnet.PropertyID{
		bacnet.PropDescription,
	}
	proprietaryProperties = []bacnet.PropertyID{}
)

// PropertyLists returns the required, optional and proprietary properties
// of the object type. The slices are copies.
func PropertyLists() (required, optional, proprietary []bacnet.PropertyID) {
	return clone(requiredProperties), clone(optionalProperties), clone(proprietaryProperties)
}

// PropertyListsTerminated is PropertyLists with each list ending in
// bacnet.PropertyListEnd, the form property enumeration walks.
func PropertyListsTerminated() (required, optional, proprietary []bacnet.PropertyID) {
	required, optional, proprietary = PropertyLists()
	return append(required, bacnet.PropertyListEnd),
		append(optional, bacnet.PropertyListEnd),
		append(proprietary, bacnet.PropertyListEnd)
}

func clone(ids []bacnet.PropertyID) []bacnet.PropertyID {
	out := make([]bacnet.PropertyID, len(ids), len(ids)+1)
	copy(out, ids)
	return out
}
