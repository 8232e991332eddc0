package partition

// Constants for the partition table binary layout.
const (
	// Magic is the table magic, stored big-endian ("BFPT")
	Magic = 0x42465054

	// MaxEntries is the maximum number of entries in a table
	MaxEntries = 16

	// HeaderSize is the size of the header including its CRC32
	HeaderSize = 16

	// HeaderCRCOffset is where the header CRC32 is stored; it covers [0, HeaderCRCOffset)
	HeaderCRCOffset = 12

	// EntrySize is the size of one entry
	EntrySize = 36

	// NameSize is the size of the NUL-padded entry name field
	NameSize = 9
)

// Entry field offsets.
const (
	entryTypeOffset        = 0
	entryDeviceOffset      = 1
	entryActiveIndexOffset = 2
	entryNameOffset        = 3
	entryAddressOffset     = 12
	entryAltAddressOffset  = 16
	entryMaxLenOffset      = 20
	entryAltMaxLenOffset   = 24
	entryLenOffset         = 28
	entryAgeOffset         = 32
)

// ImageType identifies an entry recognized by Parse.
type ImageType string

// Recognized entry name prefixes.
const (
	// ImageFirmware is the main firmware image
	ImageFirmware ImageType = "FW"

	// ImageMfg is the manufacturing image
	ImageMfg ImageType = "mfg"
)

// Table is a decoded partition table.
type Table struct {
	// Version is the table format version
	Version uint16

	// Age is the monotonic update counter; the newer copy has the higher age
	Age uint32

	// Entries are the partition entries in table order
	Entries []Entry
}

// Entry is one partition entry.
type Entry struct {
	// Type is the partition type byte
	Type uint8

	// Device is the flash device index
	Device uint8

	// ActiveIndex selects the live address pair (0 or non-zero)
	ActiveIndex uint8

	// Name is the entry name, at most NameSize bytes
	Name string

	// Address holds both candidate start addresses
	Address [2]uint32

	// MaxLen holds both candidate maximum lengths
	MaxLen [2]uint32

	// Len is the length of the stored image
	Len uint32

	// Age is the per-entry update counter
	Age uint32
}

// ActiveAddress returns the address selected by ActiveIndex.
func (e Entry) ActiveAddress() uint32 {
	if e.ActiveIndex != 0 {
		return e.Address[1]
	}
	return e.Address[0]
}

// ActiveMaxLen returns the maximum length selected by ActiveIndex.
func (e Entry) ActiveMaxLen() uint32 {
	if e.ActiveIndex != 0 {
		return e.MaxLen[1]
	}
	return e.MaxLen[0]
}

// Image is a recognized entry returned by Parse.
type Image struct {
	Type    ImageType
	Address uint32
	MaxLen  uint32
}

// Size returns the encoded size of a table with count entries.
func Size(count int) int {
	return HeaderSize + count*EntrySize + 4
}
