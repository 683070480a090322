package vm

// Machine represents a virtual machine client tracked by the server.
// A Machine exists in memory only while its connection is live; the
// durable twin lives in the store and is never deleted.
type Machine struct {
	ID         string `json:"vm_id"`      // Unique identifier, assigned by the client
	RAM        int64  `json:"ram"`        // RAM quantity, unit-less
	CPU        int64  `json:"cpu"`        // CPU count
	Disks      []Disk `json:"disks"`      // Declared disks, in order of declaration
	Authorized bool   `json:"authorized"` // True between successful AUTH and LOGOUT/disconnect
}

// Disk is a single disk declared by a machine. Disk identifiers are
// global: a later declaration on any machine reassigns ownership.
type Disk struct {
	ID       string `json:"disk_id"`
	Capacity int64  `json:"capacity"`
}

// Clone returns a deep copy of the machine, safe to hand to other
// goroutines while the owning session keeps mutating the original.
func (m Machine) Clone() Machine {
	out := m
	out.Disks = make([]Disk, len(m.Disks))
	copy(out.Disks, m.Disks)
	return out
}
