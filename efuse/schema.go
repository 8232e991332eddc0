package efuse

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/moffa90/go-bflb/codec"
)

// Record geometry for the default schema.
const (
	// Size is the eFuse record size in bytes (two 128-byte regions)
	Size = 256

	// RegionSize is the size of one eFuse region
	RegionSize = 128

	// KeySlots is the number of 128-bit key slots
	KeySlots = 12

	// KeySlotWords is the number of 32-bit words in one key slot
	KeySlotWords = 4

	// lockWord0 holds the write/read locks for region 0
	lockWord0 = 0x7C

	// lockWord1 holds the write/read locks for region 1
	lockWord1 = 0xFC

	// Bit positions of the per-slot locks inside a lock word.
	wrLockSlotBase = 17
	rdLockSlotBase = 25
)

// Schema is the default eFuse field layout.
var Schema = defaultSchema()

func defaultSchema() codec.Schema {
	s := codec.Schema{
		"ef_sf_aes_mode":     {Offset: 0x00, Pos: 0, Len: 2},
		"ef_sboot_sign_mode": {Offset: 0x00, Pos: 2, Len: 2},
		"ef_sboot_en":        {Offset: 0x00, Pos: 4, Len: 2},
		"ef_cpu0_jtag_dis":   {Offset: 0x00, Pos: 6, Len: 2},
		"ef_uart_dis":        {Offset: 0x00, Pos: 8, Len: 4},
		"ef_sdu_dis":         {Offset: 0x00, Pos: 12, Len: 1},
		"ef_ble_dis":         {Offset: 0x00, Pos: 13, Len: 1},
		"ef_wifi_dis":        {Offset: 0x00, Pos: 14, Len: 1},
		"ef_0_key_enc_en":    {Offset: 0x00, Pos: 15, Len: 1},
		"ef_cam_dis":         {Offset: 0x00, Pos: 16, Len: 1},
		"ef_sf_key_re_sel":   {Offset: 0x00, Pos: 17, Len: 2},
		"ef_cpu_rst_dbg_dis": {Offset: 0x00, Pos: 19, Len: 1},
		"ef_se_dbg_dis":      {Offset: 0x00, Pos: 20, Len: 1},
		"ef_efuse_dbg_dis":   {Offset: 0x00, Pos: 21, Len: 1},
		"ef_dbg_jtag_1_dis":  {Offset: 0x00, Pos: 22, Len: 2},
		"ef_dbg_jtag_0_dis":  {Offset: 0x00, Pos: 24, Len: 2},
		"ef_sf_dbg_dis":      {Offset: 0x00, Pos: 26, Len: 2},
		"ef_dbg_mode":        {Offset: 0x00, Pos: 28, Len: 4},
		"ef_dbg_pwd_low":     {Offset: 0x04, Pos: 0, Len: 32},
		"ef_dbg_pwd_high":    {Offset: 0x08, Pos: 0, Len: 32},
		"ef_boot_pll_clk":    {Offset: 0x6C, Pos: 0, Len: 2},
		"ef_boot_flash_clk":  {Offset: 0x6C, Pos: 2, Len: 2},
		"ef_boot_flash_div":  {Offset: 0x6C, Pos: 4, Len: 4},
		"ef_boot_xtal_type":  {Offset: 0x6C, Pos: 8, Len: 3},
		"ef_sw_usage_1":      {Offset: 0x70, Pos: 0, Len: 32},
		"ef_wifi_mac_low":    {Offset: 0x74, Pos: 0, Len: 32},
		"ef_wifi_mac_high":   {Offset: 0x78, Pos: 0, Len: 24},
		"wr_lock_wifi_mac":   {Offset: lockWord0, Pos: 14, Len: 1},
		"wr_lock_dbg_pwd":    {Offset: lockWord0, Pos: 15, Len: 1},
		"wr_lock_sw_usage_0": {Offset: lockWord0, Pos: 16, Len: 1},
		"wr_lock_cfg":        {Offset: lockWord0, Pos: 23, Len: 1},
		"rd_lock_dbg_pwd":    {Offset: lockWord0, Pos: 24, Len: 1},
		"ef_sw_usage_2":      {Offset: 0xE0, Pos: 0, Len: 32},
		"ef_sw_usage_3":      {Offset: 0xE4, Pos: 0, Len: 32},
		"wr_lock_sw_usage_2": {Offset: lockWord1, Pos: 14, Len: 1},
		"wr_lock_sw_usage_3": {Offset: lockWord1, Pos: 15, Len: 1},
	}

	for slot := 0; slot < KeySlots; slot++ {
		for w := 0; w < KeySlotWords; w++ {
			s[KeySlotField(slot, w)] = codec.Field{
				Offset: keySlotOffset(slot) + uint32(w*4),
				Pos:    0,
				Len:    32,
			}
		}
		lock := uint32(lockWord0)
		if slot >= 6 {
			lock = lockWord1
		}
		s[WriteLockField(slot)] = codec.Field{Offset: lock, Pos: uint8(wrLockSlotBase + slot%6), Len: 1}
		s[ReadLockField(slot)] = codec.Field{Offset: lock, Pos: uint8(rdLockSlotBase + slot%6), Len: 1}
	}

	return s
}

// keySlotOffset returns the byte offset of a key slot. Slots 0..5 live in
// region 0 from 0x0C, slots 6..11 in region 1 from 0x80.
func keySlotOffset(slot int) uint32 {
	if slot < 6 {
		return 0x0C + uint32(slot)*16
	}
	return RegionSize + uint32(slot-6)*16
}

// KeySlotField names word w of a key slot, e.g. "ef_key_slot_2_w1".
func KeySlotField(slot, w int) string {
	return fmt.Sprintf("ef_key_slot_%d_w%d", slot, w)
}

// WriteLockField names the write-lock bit of a key slot.
func WriteLockField(slot int) string {
	return fmt.Sprintf("wr_lock_key_slot_%d", slot)
}

// ReadLockField names the read-lock bit of a key slot.
func ReadLockField(slot int) string {
	return fmt.Sprintf("rd_lock_key_slot_%d", slot)
}

// schemaFile is the YAML form of an alternate schema.
type schemaFile struct {
	Size   int                    `yaml:"size"`
	Fields map[string]codec.Field `yaml:"fields"`
}

// LoadSchema reads an alternate schema for another chip family:
//
//	size: 256
//	fields:
//	  ef_sf_aes_mode: {offset: 0, pos: 0, len: 2}
//	  ef_key_slot_0_w0: {offset: 12, pos: 0, len: 32}
//
// It returns the schema and the record size it describes.
func LoadSchema(r io.Reader) (codec.Schema, int, error) {
	var f schemaFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, 0, fmt.Errorf("failed to decode eFuse schema: %w", err)
	}
	if f.Size <= 0 {
		return nil, 0, fmt.Errorf("eFuse schema size must be positive, got %d", f.Size)
	}
	if len(f.Fields) == 0 {
		return nil, 0, fmt.Errorf("eFuse schema has no fields")
	}

	s := codec.Schema(f.Fields)
	if err := s.Validate(f.Size); err != nil {
		return nil, 0, fmt.Errorf("invalid eFuse schema: %w", err)
	}
	return s, f.Size, nil
}
