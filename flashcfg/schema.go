package flashcfg

import "github.com/moffa90/go-bflb/codec"

// Blob geometry.
const (
	// Magic starts every blob
	Magic = "FCFG"

	// BodySize is the size of the bit-field body
	BodySize = 84

	// BlobSize is magic + body + CRC32
	BlobSize = len(Magic) + BodySize + codec.CRC32Size
)

type bodyField struct {
	name string
	off  uint32
	size uint8
}

// bodyLayout is the SPI flash configuration structure read by the boot ROM.
// All fields are byte aligned; size is in bytes.
var bodyLayout = []bodyField{
	{"io_mode", 0, 1},
	{"cont_read_support", 1, 1},
	{"sfctrl_clk_delay", 2, 1},
	{"sfctrl_clk_invert", 3, 1},
	{"reset_en_cmd", 4, 1},
	{"reset_cmd", 5, 1},
	{"exit_contread_cmd", 6, 1},
	{"exit_contread_cmd_size", 7, 1},
	{"jedecid_cmd", 8, 1},
	{"jedecid_cmd_dmy_clk", 9, 1},
	{"qpi_jedecid_cmd", 10, 1},
	{"qpi_jedecid_dmy_clk", 11, 1},
	{"sector_size", 12, 1},
	{"mfg_id", 13, 1},
	{"page_size", 14, 2},
	{"chip_erase_cmd", 16, 1},
	{"sector_erase_cmd", 17, 1},
	{"blk32k_erase_cmd", 18, 1},
	{"blk64k_erase_cmd", 19, 1},
	{"write_enable_cmd", 20, 1},
	{"page_prog_cmd", 21, 1},
	{"qpage_prog_cmd", 22, 1},
	{"qual_page_prog_addr_mode", 23, 1},
	{"fast_read_cmd", 24, 1},
	{"fast_read_dmy_clk", 25, 1},
	{"qpi_fast_read_cmd", 26, 1},
	{"qpi_fast_read_dmy_clk", 27, 1},
	{"fast_read_do_cmd", 28, 1},
	{"fast_read_do_dmy_clk", 29, 1},
	{"fast_read_dio_cmd", 30, 1},
	{"fast_read_dio_dmy_clk", 31, 1},
	{"fast_read_qo_cmd", 32, 1},
	{"fast_read_qo_dmy_clk", 33, 1},
	{"fast_read_qio_cmd", 34, 1},
	{"fast_read_qio_dmy_clk", 35, 1},
	{"qpi_fast_read_qio_cmd", 36, 1},
	{"qpi_fast_read_qio_dmy_clk", 37, 1},
	{"qpi_page_prog_cmd", 38, 1},
	{"write_vreg_enable_cmd", 39, 1},
	{"wel_reg_index", 40, 1},
	{"qe_reg_index", 41, 1},
	{"busy_reg_index", 42, 1},
	{"wel_bit_pos", 43, 1},
	{"qe_bit_pos", 44, 1},
	{"busy_bit_pos", 45, 1},
	{"wel_reg_write_len", 46, 1},
	{"wel_reg_read_len", 47, 1},
	{"qe_reg_write_len", 48, 1},
	{"qe_reg_read_len", 49, 1},
	{"release_power_down", 50, 1},
	{"busy_reg_read_len", 51, 1},
	{"reg_read_cmd0", 52, 1},
	{"reg_read_cmd1", 53, 1},
	{"reg_read_cmd2", 54, 1},
	{"reg_read_cmd3", 55, 1},
	{"reg_write_cmd0", 56, 1},
	{"reg_write_cmd1", 57, 1},
	{"reg_write_cmd2", 58, 1},
	{"reg_write_cmd3", 59, 1},
	{"enter_qpi_cmd", 60, 1},
	{"exit_qpi_cmd", 61, 1},
	{"cont_read_code", 62, 1},
	{"cont_read_exit_code", 63, 1},
	{"burst_wrap_cmd", 64, 1},
	{"burst_wrap_dmy_clk", 65, 1},
	{"burst_wrap_data_mode", 66, 1},
	{"burst_wrap_code", 67, 1},
	{"de_burst_wrap_cmd", 68, 1},
	{"de_burst_wrap_cmd_dmy_clk", 69, 1},
	{"de_burst_wrap_code_mode", 70, 1},
	{"de_burst_wrap_code", 71, 1},
	{"sector_erase_time", 72, 2},
	{"blk32k_erase_time", 74, 2},
	{"blk64k_erase_time", 76, 2},
	{"page_prog_time", 78, 2},
	{"chip_erase_time", 80, 2},
	{"power_down_delay", 82, 1},
	{"qe_data", 83, 1},
}

// BodySchema is the bit-field schema of a blob body.
var BodySchema = bodySchema()

func bodySchema() codec.Schema {
	s := make(codec.Schema, len(bodyLayout))
	for _, f := range bodyLayout {
		s[f.name] = byteField(f.off, f.size)
	}
	return s
}

// byteField maps a byte-aligned field onto the word containing it.
func byteField(off uint32, size uint8) codec.Field {
	return codec.Field{
		Offset: off &^ 3,
		Pos:    uint8(8 * (off & 3)),
		Len:    8 * size,
	}
}

// NewConfig returns an empty blob body record.
func NewConfig() *codec.Record {
	return codec.NewRecord(BodySize)
}
