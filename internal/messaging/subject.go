package messaging

import (
	"fmt"
	"strings"

	"github.com/duskpool/dp-indexer/internal/domain"
)

// SubjectForChain returns the JetStream subject carrying one chain's block
// envelopes. The CAIP-2 colon is not a valid subject token character, so
// "eip155:42161" maps to "darkpool.events.eip155-42161". Publisher and
// consumer must agree on this mapping, which is why it lives here.
func SubjectForChain(chain domain.Chain) string {
	token := strings.ReplaceAll(string(chain), ":", "-")
	return fmt.Sprintf("darkpool.events.%s", token)
}

// SubjectWildcard matches the block envelopes of every chain
func SubjectWildcard() string {
	return "darkpool.events.>"
}
