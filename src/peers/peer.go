package peers

import (
	"fmt"

	"github.com/fedledger/fedledger/src/federation"
	"github.com/fedledger/fedledger/src/ident"
)

// FederationInfo names a Federation.
type FederationInfo struct {
	Handle string `json:"handle"`
	ID     string `json:"id"`
}

// Peer is one Organization of the Federation and the address of its node.
type Peer struct {
	Handle  string `json:"handle"`
	ID      string `json:"id"`
	Symbol  string `json:"symbol,omitempty"`
	NetAddr string `json:"addr,omitempty"`
}

// Directory is the content of federation.json.
type Directory struct {
	Federation FederationInfo `json:"federation"`
	Peers      []*Peer        `json:"peers"`
}

// NewDirectory describes fed. addrs maps Organization handles to network
// addresses; Organizations without an entry get an empty address.
func NewDirectory(fed *federation.Federation, addrs map[string]string) *Directory {
	d := &Directory{
		Federation: FederationInfo{
			Handle: fed.Handle(),
			ID:     fed.ID(),
		},
	}

	for _, o := range fed.Organizations() {
		d.Peers = append(d.Peers, &Peer{
			Handle:  o.Handle(),
			ID:      o.Identifier().ID,
			Symbol:  o.Symbol(),
			NetAddr: addrs[o.Handle()],
		})
	}
	return d
}

// FederationIdentifier ...
func (d *Directory) FederationIdentifier() *ident.Identifier {
	return &ident.Identifier{
		Kind:   ident.Federation,
		ID:     d.Federation.ID,
		Handle: d.Federation.Handle,
	}
}

// Validate checks handles and id lengths against the identifier rules, and
// that Organization handles are unique.
func (d *Directory) Validate() error {
	if err := validate(ident.Federation, d.Federation.Handle, d.Federation.ID); err != nil {
		return err
	}

	seen := make(map[string]bool, len(d.Peers))
	for _, p := range d.Peers {
		if err := validate(ident.Organization, p.Handle, p.ID); err != nil {
			return err
		}
		if seen[p.Handle] {
			return fmt.Errorf("duplicate organization %q", p.Handle)
		}
		seen[p.Handle] = true
	}
	return nil
}

func validate(k ident.Kind, handle, id string) error {
	if err := ident.ValidateHandle(k, handle); err != nil {
		return err
	}
	if len(id) != k.IDLen() {
		return fmt.Errorf("%s %q: id %q should have %d characters", k, handle, id, k.IDLen())
	}
	return nil
}

// Build returns the Federation described by the directory, with its
// Organizations registered in file order.
func (d *Directory) Build() (*federation.Federation, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	fedIdent := d.FederationIdentifier()
	fed := federation.FederationFromIdentifier(fedIdent)

	for _, p := range d.Peers {
		orgIdent := &ident.Identifier{
			Kind:   ident.Organization,
			ID:     p.ID,
			Handle: p.Handle,
			Parent: fedIdent,
		}
		fed.RegisterOrganization(federation.OrganizationFromIdentifier(orgIdent, p.Symbol))
	}
	return fed, nil
}

// ByHandle returns the Peer of the Organization with handle.
func (d *Directory) ByHandle(handle string) (*Peer, bool) {
	for _, p := range d.Peers {
		if p.Handle == handle {
			return p, true
		}
	}
	return nil, false
}

// Addrs returns the network addresses of every peer but the one with handle
// self, skipping peers without an address.
func (d *Directory) Addrs(self string) []string {
	var res []string
	for _, p := range d.Peers {
		if p.Handle == self || p.NetAddr == "" {
			continue
		}
		res = append(res, p.NetAddr)
	}
	return res
}

// Len ...
func (d *Directory) Len() int {
	return len(d.Peers)
}
