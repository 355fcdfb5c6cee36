package cli

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nobbyfix/AzurLaneTools/pkg/imgrecon"
)

// ReconFlags holds recon command flags
type ReconFlags struct {
	Image string
	Mesh  string
	Out   string
}

var reconFlags ReconFlags

// NewReconCommand creates the recon command
func NewReconCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recon",
		Short: "Reconstruct a painting from a texture and its mesh",
		Long: `Reassemble a mesh-packed texture atlas into the original image using
the texture coordinates and vertices of an exported mesh.`,
		Args: cobra.NoArgs,
		RunE: runRecon,
	}

	cmd.Flags().StringVar(&reconFlags.Image, "image", "", "texture atlas PNG (required)")
	cmd.Flags().StringVar(&reconFlags.Mesh, "mesh", "", "mesh OBJ export (required)")
	cmd.Flags().StringVarP(&reconFlags.Out, "out", "o", "", "output PNG (default: <image>-recon.png)")
	cmd.MarkFlagRequired("image")
	cmd.MarkFlagRequired("mesh")

	return cmd
}

func runRecon(cmd *cobra.Command, args []string) error {
	f, err := os.Open(reconFlags.Image)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	src, err := png.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	data, err := os.ReadFile(reconFlags.Mesh)
	if err != nil {
		return fmt.Errorf("failed to read mesh: %w", err)
	}
	mesh, err := imgrecon.ParseMesh(strings.Split(string(data), "\n"))
	if err != nil {
		return fmt.Errorf("failed to parse mesh: %w", err)
	}

	out := reconFlags.Out
	if out == "" {
		out = strings.TrimSuffix(reconFlags.Image, filepath.Ext(reconFlags.Image)) + "-recon.png"
	}
	if err := writePNG(out, imgrecon.Reconstruct(src, mesh)); err != nil {
		return err
	}

	if !globalFlags.Quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Reconstructed image written to %s\n", out)
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return f.Close()
}
