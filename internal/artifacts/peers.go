package artifacts

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	v0 "github.com/cappyzawa/webui-operator/api/v0"
	"github.com/cappyzawa/webui-operator/internal/dependency"
	"github.com/cappyzawa/webui-operator/internal/schema"
)

// PeerKind selects a peer inventory artifact
type PeerKind string

const (
	// PeerUPF lists the UPFs related over fiveg_n4
	PeerUPF PeerKind = "upf"
	// PeerGNB lists the gNodeBs related over fiveg_gnb_identity
	PeerGNB PeerKind = "gnb"
)

// BuildPeerListConfig renders the inventory of kind as a JSON array of
// objects with string values. Peers whose databag does not validate are
// skipped. Entries are sorted so the content does not depend on relation
// order, and an empty inventory renders as [].
func (b *Builder) BuildPeerListConfig(kind PeerKind, deps dependency.Set) (Artifact, error) {
	var (
		name    string
		p       string
		extract func(map[string]string) (map[string]string, bool)
	)
	switch kind {
	case PeerUPF:
		name, p, extract = b.cfg.Relations.FivegN4, b.cfg.Workload.UPFConfigPath(), upfEntry
	case PeerGNB:
		name, p, extract = b.cfg.Relations.GnbIdentity, b.cfg.Workload.GNBConfigPath(), gnbEntry
	default:
		return Artifact{}, fmt.Errorf("unknown peer kind %q", kind)
	}

	bags, _ := dependency.PayloadOf[dependency.Databags](deps, name)
	entries := make([]map[string]string, 0, len(bags))
	for _, raw := range bags {
		if entry, ok := extract(raw); ok {
			entries = append(entries, entry)
		}
	}

	content, err := marshalEntries(entries)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to render %s: %w", p, err)
	}
	return Artifact{Path: p, Content: content, DerivedFrom: []string{name}}, nil
}

func upfEntry(raw map[string]string) (map[string]string, bool) {
	data, err := schema.Validate[v0.N4ProviderData](raw)
	if err != nil {
		return nil, false
	}
	return map[string]string{
		"hostname": data.UPFHostname,
		"port":     strconv.Itoa(data.UPFPort),
	}, true
}

func gnbEntry(raw map[string]string) (map[string]string, bool) {
	data, err := schema.Validate[v0.GnbIdentityData](raw)
	if err != nil {
		return nil, false
	}
	tac, err := strconv.Atoi(data.TAC)
	if err != nil {
		return nil, false
	}
	return map[string]string{
		"name": data.GnbName,
		"tac":  strconv.Itoa(tac),
	}, true
}

// marshalEntries serializes entries in a stable order. encoding/json emits
// map keys sorted.
func marshalEntries(entries []map[string]string) (string, error) {
	encoded := make([]string, len(entries))
	for i, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return "", err
		}
		encoded[i] = string(data)
	}
	sort.Strings(encoded)

	out := "["
	for i, e := range encoded {
		if i > 0 {
			out += ","
		}
		out += e
	}
	return out + "]", nil
}
