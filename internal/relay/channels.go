package relay

import (
	"strings"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/pkg/enums"
)

// AdminChannel reaches every connected admin.
const AdminChannel = "admin:all"

func UserChannel(id uuid.UUID) string    { return "user:" + id.String() }
func OrderChannel(id uuid.UUID) string   { return "order:" + id.String() }
func BookingChannel(id uuid.UUID) string { return "booking:" + id.String() }
func VendorChannel(id uuid.UUID) string  { return "vendor:" + id.String() }
func RoleChannel(role enums.Role) string { return "role:" + string(role) }

// Kind is the channel prefix, used as a low-cardinality metric label.
func Kind(channel string) string {
	if i := strings.IndexByte(channel, ':'); i > 0 {
		return channel[:i]
	}
	return "unknown"
}

// DefaultChannels are the channels a connection joins on handshake.
func DefaultChannels(userID uuid.UUID, role enums.Role) []string {
	out := []string{RoleChannel(role), UserChannel(userID)}
	switch role {
	case enums.RoleVendor:
		out = append(out, VendorChannel(userID))
	case enums.RoleAdmin:
		out = append(out, AdminChannel)
	}
	return out
}
