// Package catalog joins the raw Home Assistant registries into per-node device records.
//
// Load inspects every device identifier, joins entities and states by id,
// and selects the integration schema for the batch: if any device belongs
// to the ozw integration the whole batch is treated as ozw, otherwise as
// zwave. The two schemas are never mixed within one build.
package catalog

import (
	"zwavenet/internal/domain"
)

// SkippedDevice records a registry device dropped during load
type SkippedDevice struct {
	DeviceID string
	Err      error
}

// StatusTarget describes a secondary node status request for the ozw schema
type StatusTarget struct {
	Key          string
	ControllerID int
	NodeID       int
	InstanceID   int
}

// Catalog is the joined device set of one poll cycle
type Catalog struct {
	Domain  domain.Domain
	Skipped []SkippedDevice
	// Counts holds the number of parsed devices per identifier domain
	Counts map[domain.Domain]int

	records []*domain.DeviceRecord
	byKey   map[string]*domain.DeviceRecord
}

// Load joins devices, entities and states into device records for the selected domain
func Load(devices []domain.RawDevice, entities []domain.RawEntity, states []domain.State) *Catalog {
	statesByEntity := make(map[string]domain.State, len(states))
	for _, st := range states {
		statesByEntity[st.EntityID] = st
	}

	entitiesByDevice := make(map[string][]domain.RawEntity)
	for _, ent := range entities {
		if ent.DeviceID == "" {
			continue
		}
		entitiesByDevice[ent.DeviceID] = append(entitiesByDevice[ent.DeviceID], ent)
	}

	c := &Catalog{
		Counts: make(map[domain.Domain]int),
		byKey:  make(map[string]*domain.DeviceRecord),
	}

	grouped := make(map[domain.Domain][]*domain.DeviceRecord)
	for _, device := range devices {
		id, err := ParseIdentifier(device)
		if err != nil {
			c.Skipped = append(c.Skipped, SkippedDevice{DeviceID: device.ID, Err: err})
			continue
		}

		record := joinDevice(device, id, entitiesByDevice[device.ID], statesByEntity)
		grouped[id.Domain] = append(grouped[id.Domain], record)
		c.Counts[id.Domain]++
	}

	c.Domain = domain.DomainZWave
	for _, d := range domain.SupportedDomains {
		if len(grouped[d]) > 0 {
			c.Domain = d
			break
		}
	}

	c.records = grouped[c.Domain]
	for _, r := range c.records {
		c.byKey[r.Key()] = r
	}

	return c
}

func joinDevice(device domain.RawDevice, id domain.DeviceIdentifier, entities []domain.RawEntity, states map[string]domain.State) *domain.DeviceRecord {
	record := &domain.DeviceRecord{
		DeviceIdentifier: id,
		DeviceID:         device.ID,
		Name:             device.DisplayName(),
		Manufacturer:     device.Manufacturer,
		Product:          device.Model,
	}

	for _, ent := range entities {
		joined := domain.Entity{RawEntity: ent}

		if st, ok := states[ent.EntityID]; ok {
			state := st
			joined.State = &state

			// zwave.* entities carry the per-node status
			if state.Domain() == string(domain.DomainZWave) {
				record.Status = &state
			}
		}

		record.Entities = append(record.Entities, joined)
	}
	record.EntityCount = len(record.Entities)

	if record.Status != nil {
		applyAttributes(record, record.Status.Attributes)
	}

	return record
}

// Len returns the number of records for the selected domain
func (c *Catalog) Len() int {
	return len(c.records)
}

// Records returns copies of the device records in registry order.
// A primary role inferred from the controller class is dropped when
// another record reports the role explicitly.
func (c *Catalog) Records() []domain.DeviceRecord {
	explicit := false
	for _, r := range c.records {
		if r.IsPrimary() && !r.PrimaryInferred {
			explicit = true
			break
		}
	}

	out := make([]domain.DeviceRecord, 0, len(c.records))
	for _, r := range c.records {
		record := *r
		if explicit && record.PrimaryInferred {
			record.Capabilities.PrimaryController = false
			record.PrimaryInferred = false
		}
		out = append(out, record)
	}
	return out
}

// Record returns the record with the given composite key
func (c *Catalog) Record(key string) (domain.DeviceRecord, bool) {
	r, ok := c.byKey[key]
	if !ok {
		return domain.DeviceRecord{}, false
	}
	return *r, true
}

// StatusTargets lists the secondary status requests needed before graph construction.
// Only the ozw schema has them, one per device whose instance is 1.
func (c *Catalog) StatusTargets() []StatusTarget {
	if c.Domain != domain.DomainOZW {
		return nil
	}

	var targets []StatusTarget
	for _, r := range c.records {
		if r.InstanceID != 1 {
			continue
		}
		targets = append(targets, StatusTarget{
			Key:          r.Key(),
			ControllerID: r.ControllerID,
			NodeID:       r.NodeID,
			InstanceID:   r.InstanceID,
		})
	}
	return targets
}

// MergeNodeStatus attaches a node status result to the record with the given key.
// It returns false when no record matches.
func (c *Catalog) MergeNodeStatus(key string, status map[string]any) bool {
	r, ok := c.byKey[key]
	if !ok {
		return false
	}

	r.NodeStatus = status
	applyAttributes(r, status)
	return true
}
