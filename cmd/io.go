package cmd

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-smrsim/internal/types"
	"github.com/deploymenttheory/go-smrsim/pkg/app"
	"github.com/deploymenttheory/go-smrsim/pkg/app/report"
)

var (
	// Read output
	ioOutFile string

	// Write payload
	ioPattern uint8
	ioInFile  string
)

var ioCmd = &cobra.Command{
	Use:   "io",
	Short: "Submit reads and writes through the policy engine",
	Long: `Submit a read or write to the emulated device. The request is checked
against the zone policy exactly as device I/O would be, and the decision is
printed. Rejected requests exit with an error.

Examples:
  # Write 8 sectors at the start of zone 1 (zone size 524288)
  smrsim io write 524288 8 --pattern 0xa5 -d disk.img

  # Read them back into a file
  smrsim io read 524288 8 --out data.bin -d disk.img`,
}

var ioReadCmd = &cobra.Command{
	Use:   "read <lba> <sectors>",
	Short: "Read sectors",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lba, err := parseLBA(args[0])
		if err != nil {
			return err
		}
		sectors, err := parseUint32("sector count", args[1])
		if err != nil {
			return err
		}

		return withSession(func(ctx *app.Context, s *app.Session) error {
			data, d, ioErr := s.Engine.Read(ctx, lba, sectors)
			result := report.NewIOResult(d, sectors)
			if ioErr == nil && len(data) > 0 {
				if ioOutFile != "" {
					if err := os.WriteFile(ioOutFile, data, 0o644); err != nil {
						return app.NewError(app.ErrCodeDeviceAccess, "failed to write output file", err)
					}
					result.Output = ioOutFile
				} else {
					result.Output = preview(data)
				}
			}
			if err := render(ctx, result); err != nil {
				return err
			}
			return app.Classify("read failed", ioErr)
		})
	},
}

var ioWriteCmd = &cobra.Command{
	Use:   "write <lba> <sectors>",
	Short: "Write sectors filled with a pattern or taken from a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lba, err := parseLBA(args[0])
		if err != nil {
			return err
		}
		sectors, err := parseUint32("sector count", args[1])
		if err != nil {
			return err
		}
		data, err := payload(sectors)
		if err != nil {
			return err
		}

		return withSession(func(ctx *app.Context, s *app.Session) error {
			d, ioErr := s.Engine.Write(ctx, lba, data)
			if err := render(ctx, report.NewIOResult(d, sectors)); err != nil {
				return err
			}
			return app.Classify("write failed", ioErr)
		})
	},
}

func init() {
	rootCmd.AddCommand(ioCmd)
	ioCmd.AddCommand(ioReadCmd, ioWriteCmd)

	ioReadCmd.Flags().StringVar(&ioOutFile, "out", "", "write the data read to a file")
	ioWriteCmd.Flags().Uint8Var(&ioPattern, "pattern", 0, "byte to fill the payload with")
	ioWriteCmd.Flags().StringVar(&ioInFile, "in", "", "take the payload from a file, zero padded")
	ioWriteCmd.MarkFlagsMutuallyExclusive("pattern", "in")
}

// payload builds the write buffer of sectors sectors.
func payload(sectors uint32) ([]byte, error) {
	size := types.SectorsToBytes(uint64(sectors))
	if ioInFile == "" {
		return bytes.Repeat([]byte{ioPattern}, int(size)), nil
	}
	src, err := os.ReadFile(ioInFile)
	if err != nil {
		return nil, app.NewError(app.ErrCodeInvalidInput, "failed to read input file", err)
	}
	if int64(len(src)) > size {
		return nil, app.NewError(app.ErrCodeInvalidInput,
			fmt.Sprintf("input file holds %d bytes, more than %d sectors", len(src), sectors), nil)
	}
	data := make([]byte, size)
	copy(data, src)
	return data, nil
}

// preview returns the first bytes of data in hex.
func preview(data []byte) string {
	const n = 16
	if len(data) <= n {
		return hex.EncodeToString(data)
	}
	return hex.EncodeToString(data[:n]) + fmt.Sprintf("... (%d bytes)", len(data))
}
