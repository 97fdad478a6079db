package access

// Subject is the caller identity an operation is evaluated for. AccountID is
// the internal identity; Email is the grant key. The two are distinct
// relations and are never assumed to stay in sync after grant time.
type Subject struct {
	AccountID string
	Email     string
}

// Resource is the authorization-relevant view of a document record.
type Resource struct {
	OwnerID    string
	SharedWith []string
}

// CanView reports whether the subject may read the resource: the owner, or
// any account whose email is on the grant list. Email comparison is exact
// (case-sensitive, as stored).
func CanView(sub Subject, res Resource) bool {
	if isOwner(sub, res) {
		return true
	}
	if sub.Email == "" {
		return false
	}
	for _, email := range res.SharedWith {
		if email == sub.Email {
			return true
		}
	}
	return false
}

// CanMutateSharing reports whether the subject may add or remove grants.
// Only the owner manages the grant list.
func CanMutateSharing(sub Subject, res Resource) bool {
	return isOwner(sub, res)
}

// CanRename reports whether the subject may change the resource name.
// Owner-only: grantees have view rights, not identity rights.
func CanRename(sub Subject, res Resource) bool {
	return isOwner(sub, res)
}

// CanDelete reports whether the subject may delete the resource.
func CanDelete(sub Subject, res Resource) bool {
	return isOwner(sub, res)
}

func isOwner(sub Subject, res Resource) bool {
	return sub.AccountID != "" && sub.AccountID == res.OwnerID
}
