package lanzou

import (
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RootID is the sentinel id of the drive root. The remote uses -1; the root
// has no real folder record.
const RootID int64 = -1

// RootName is the fixed display name of the root path segment.
const RootName = "LanZouCloud"

// File is one row of a folder listing. Reconstructed on every fetch, never
// cached. Name is the only field mutable through the API (via rename), and
// renames cannot change the extension.
type File struct {
	ID             int64
	Name           string
	Time           string
	Size           string // display string as rendered by the service
	Type           string
	Downloads      int
	HasPassword    bool
	HasDescription bool
}

// SizeBytes derives a byte count from the display size string ("10.2 M",
// "900 K", "1.5 G"). Returns 0 when the string does not parse; the display
// string stays authoritative for UI purposes.
func (f File) SizeBytes() int64 {
	return parseDisplaySize(f.Size)
}

// Folder is one subfolder row of a folder listing.
type Folder struct {
	ID          int64
	Name        string
	HasPassword bool
	Description string
}

// PathSegment is one element of the breadcrumb chain from the root to the
// listed folder. Segments form a rooted, ordered, acyclic chain; the first
// is always {RootName, RootID}.
type PathSegment struct {
	Name        string
	ID          int64
	Description string
	Pos         int
}

// ShareInfo is the canonical "how to reach this item from outside" record.
// Always re-derived from the remote per request.
type ShareInfo struct {
	Name        string
	URL         string
	Password    string // empty when the share is public
	Description string
}

// FileDetail is the resolved metadata of a file share link, including the
// direct (binary) URL obtained through the anti-hotlinking indirection.
type FileDetail struct {
	Name        string
	Size        string
	Time        string
	Description string
	URL         string // direct download URL
}

// ShareFile is one file inside a resolved folder share.
type ShareFile struct {
	Name string
	Size string
	Time string
	URL  string // per-file share link
}

// FolderDetail is the resolved content of a folder share link.
type FolderDetail struct {
	Name        string
	Description string
	Files       []ShareFile
}

// RecycleFile is a soft-deleted file in the recycle bin.
type RecycleFile struct {
	Name string
	ID   int64
	Size string
	Time string
	Type string
}

// RecycleFolder is a soft-deleted folder; its contained files are recovered
// by a secondary fetch.
type RecycleFolder struct {
	Name  string
	ID    int64
	Files []RecycleFile
}

// RecycleBin is one consistent snapshot of the bin, with a display-name
// index disambiguated against the service's name truncation.
type RecycleBin struct {
	Files   []RecycleFile
	Folders []RecycleFolder
	// NameIndex maps (possibly suffix-disambiguated) display names to ids.
	NameIndex map[string]int64
}

// MoveFolderResult reports the per-file outcome of a synthesized folder
// move. When Failed is non-empty the operation as a whole failed, but the
// files in Moved stay in the destination: the remote has no transactions and
// rollback would risk data loss.
type MoveFolderResult struct {
	NewFolderID int64
	Moved       []string
	Failed      []string
}

// ---- wire DTOs -----------------------------------------------------------

// intString accepts the service's habit of serializing numbers either bare
// or quoted, endpoint by endpoint.
type intString int64

func (n *intString) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*n = intString(v)
	return nil
}

// baseResp is the common shape of doupload.php responses. The meaning of zt
// is endpoint-specific: 1 is success almost everywhere, but the share-folder
// listing endpoint reuses 1/2/3/4 for continue/done/bad-password/retry.
type baseResp struct {
	Zt   intString           `json:"zt"`
	Info jsoniter.RawMessage `json:"info"`
	Text jsoniter.RawMessage `json:"text"`
}

// emptyRaw reports whether a raw payload field carries no data. The service
// sends "" or null where an empty array would be expected.
func emptyRaw(r jsoniter.RawMessage) bool {
	s := string(r)
	return len(r) == 0 || s == `""` || s == "null"
}

type fileDTO struct {
	ID       intString `json:"id"`
	NameAll  string    `json:"name_all"`
	Name     string    `json:"name"`
	Size     string    `json:"size"`
	Time     string    `json:"time"`
	Downs    intString `json:"downs"`
	Onof     intString `json:"onof"`   // 1 when password-protected
	IsDes    intString `json:"is_des"` // 1 when a description is set
	FileType string    `json:"icon"`
}

func (d fileDTO) toFile() File {
	name := d.NameAll
	if name == "" {
		name = d.Name
	}
	return File{
		ID:             int64(d.ID),
		Name:           name,
		Size:           d.Size,
		Time:           d.Time,
		Type:           d.FileType,
		Downloads:      int(d.Downs),
		HasPassword:    d.Onof == 1,
		HasDescription: d.IsDes == 1,
	}
}

type folderDTO struct {
	ID   intString `json:"fol_id"`
	Name string    `json:"name"`
	Onof intString `json:"onof"`
	Des  string    `json:"folder_des"`
}

func (d folderDTO) toFolder() Folder {
	return Folder{
		ID:          int64(d.ID),
		Name:        d.Name,
		HasPassword: d.Onof == 1,
		Description: strings.Trim(d.Des, "[]"),
	}
}

type pathDTO struct {
	Name string    `json:"name"`
	ID   intString `json:"folderid"`
	Des  string    `json:"folder_des"`
}

// shareListDTO is one file row of the share-folder content endpoint.
type shareListDTO struct {
	ID      string `json:"id"` // share path component, not a numeric id
	NameAll string `json:"name_all"`
	Size    string `json:"size"`
	Time    string `json:"time"`
	Duan    string `json:"duan"`
}

// downDTO is the payload returned by the download AJAX endpoint.
type downDTO struct {
	Zt  intString `json:"zt"`
	Dom string    `json:"dom"`
	URL string    `json:"url"`
	Inf string    `json:"inf"`
}

func parseDisplaySize(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0
	}
	fields := strings.Fields(s)
	num := fields[0]
	unit := ""
	if len(fields) > 1 {
		unit = fields[1]
	} else {
		// "10.2M" without a space
		i := strings.IndexFunc(num, func(r rune) bool {
			return (r < '0' || r > '9') && r != '.'
		})
		if i > 0 {
			unit = num[i:]
			num = num[:i]
		}
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	switch strings.ToUpper(strings.TrimSpace(unit)) {
	case "K", "KB":
		v *= 1 << 10
	case "M", "MB":
		v *= 1 << 20
	case "G", "GB":
		v *= 1 << 30
	}
	return int64(v)
}
