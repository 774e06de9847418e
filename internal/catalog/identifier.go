package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"zwavenet/internal/domain"
)

// ErrInvalidIdentifier is returned for devices whose registry identifier cannot be parsed
var ErrInvalidIdentifier = errors.New("invalid device identifier")

// ParseIdentifier parses the first identifier tuple of a registry device.
//
// The tuple is (domain, external id[, instance]). For the ozw integration the
// external id is "controller.node.instance"; for every other domain it is the
// node id, with the instance taken from the optional third element.
func ParseIdentifier(device domain.RawDevice) (domain.DeviceIdentifier, error) {
	id := domain.DeviceIdentifier{ControllerID: 1, InstanceID: 1}

	parts := device.IdentifierParts()
	if len(parts) < 2 {
		return id, fmt.Errorf("%w: device %s has identifiers %v", ErrInvalidIdentifier, device.ID, device.Identifiers)
	}

	id.Domain = domain.Domain(parts[0])
	externalID := parts[1]

	if id.Domain == domain.DomainOZW {
		fields := strings.Split(externalID, ".")
		if len(fields) < 3 {
			return id, fmt.Errorf("%w: device %s ozw id %q is not controller.node.instance", ErrInvalidIdentifier, device.ID, externalID)
		}

		values := make([]int, 3)
		for i := range values {
			v, err := strconv.Atoi(fields[i])
			if err != nil {
				return id, fmt.Errorf("%w: device %s ozw id %q: %v", ErrInvalidIdentifier, device.ID, externalID, err)
			}
			values[i] = v
		}
		id.ControllerID, id.NodeID, id.InstanceID = values[0], values[1], values[2]
	} else {
		nodeID, err := strconv.Atoi(externalID)
		if err != nil {
			return id, fmt.Errorf("%w: device %s node id %q: %v", ErrInvalidIdentifier, device.ID, externalID, err)
		}
		id.NodeID = nodeID
	}

	if len(parts) > 2 {
		instanceID, err := strconv.Atoi(parts[2])
		if err != nil {
			return id, fmt.Errorf("%w: device %s instance %q: %v", ErrInvalidIdentifier, device.ID, parts[2], err)
		}
		id.InstanceID = instanceID
	}

	return id, nil
}
