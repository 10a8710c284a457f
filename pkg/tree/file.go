package tree

import (
	"github.com/google/uuid"
	"github.com/lockbookapp/lockbook-core/pkg/crypto"
)

// FileType distinguishes the three kinds of node in the tree (§3.3). A Link
// is a pointer to a file under a different owner's tree, materialized on
// the recipient's side of a share.
type FileType int

const (
	Document FileType = iota
	Folder
	LinkType
)

func (t FileType) String() string {
	switch t {
	case Document:
		return "Document"
	case Folder:
		return "Folder"
	case LinkType:
		return "Link"
	default:
		return "Unknown"
	}
}

// AccessMode ranks the level of access a user holds on a share root, in
// increasing order so that comparisons (`mode >= Write`) express "at least"
// (§4.3.4 access_mode cache).
type AccessMode int

const (
	NoAccess AccessMode = iota
	Read
	Write
	Owner
)

// UserAccessKey grants one user access to a share root's symmetric key
// (§3.3 user_access_keys, §3.4).
type UserAccessKey struct {
	EncryptedByPK  []byte     `json:"encrypted_by_pk"`
	EncryptedForPK []byte     `json:"encrypted_for_pk"`
	EncryptedKey   crypto.Ciphertext `json:"encrypted_key"`
	Mode           AccessMode `json:"mode"`
	Deleted        bool       `json:"deleted"`
}

// FileMetadata is the plaintext (pre-signature) content of one file entity
// (§3.3). The type parameter of crypto.SignedEnvelope is this struct — the
// whole record is wrapped in a timestamped signature by the mutating user.
type FileMetadata struct {
	ID       uuid.UUID `json:"id"`
	Parent   uuid.UUID `json:"parent"`
	FileType FileType  `json:"file_type"`
	// LinkTarget is populated iff FileType == LinkType.
	LinkTarget uuid.UUID `json:"link_target,omitempty"`

	EncryptedName crypto.Ciphertext  `json:"encrypted_name"`
	NameHMAC      crypto.HMACDigest  `json:"name_hmac"`
	Owner         []byte             `json:"owner"` // compressed-SEC1 public key
	IsDeleted     bool               `json:"is_deleted"`

	DocumentHMAC *crypto.HMACDigest `json:"document_hmac,omitempty"`
	DocumentSize *int64             `json:"document_size,omitempty"`

	UserAccessKeys   []UserAccessKey    `json:"user_access_keys,omitempty"`
	FolderAccessKey  *crypto.Ciphertext `json:"folder_access_key,omitempty"` // absent on root
}

// File is a FileMetadata wrapped in the signed envelope every record is
// persisted and transmitted as (§3.2, §3.3).
type File = crypto.SignedEnvelope[FileMetadata]

// IsRoot reports whether f is its own parent, the defining property of a
// root file (§3.5 invariant 1).
func (m FileMetadata) IsRoot() bool {
	return m.Parent == m.ID
}

// OwnerAccessKey finds the UserAccessKey entry (if any) belonging to pk,
// ignoring entries marked deleted.
func (m FileMetadata) OwnerAccessKey(pk []byte) (UserAccessKey, bool) {
	for _, k := range m.UserAccessKeys {
		if k.Deleted {
			continue
		}
		if string(k.EncryptedForPK) == string(pk) {
			return k, true
		}
	}
	return UserAccessKey{}, false
}
