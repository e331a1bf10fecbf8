package membership

import (
	"errors"
	"fmt"

	"github.com/platinummonkey/taskforge/pkg/apperr"
	"github.com/platinummonkey/taskforge/pkg/storage"
)

const (
	msgTeamNotFound   = "Team not found"
	msgUserNotFound   = "User not found"
	msgMemberNotFound = "Member not found"
	msgTeamExists     = "Team with this name already exists"
	msgAlreadyMember  = "User is already a member of this team"
)

// lookup classifies a store read: ErrNotFound becomes a NotFound with
// message, anything else a wrapped failure
func lookup(err error, message, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(message)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
