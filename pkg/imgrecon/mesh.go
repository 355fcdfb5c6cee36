// Package imgrecon reassembles painting textures that were packed as
// mesh-sliced atlases back into the full image.
package imgrecon

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
)

// ErrMeshNotFound is returned by loaders when a texture has no mesh
var ErrMeshNotFound = errors.New("mesh not found")

// Point is a 2D coordinate as read from a mesh file
type Point struct {
	X, Y float64
}

// Mesh holds the texture coordinates and vertex placements of a sliced
// texture. Only every second entry of the source file is kept.
type Mesh struct {
	TexCoords []Point
	Vertices  []Point
}

// ParseMesh reads a Wavefront-style mesh export. Texture coordinates
// come from "vt " lines and vertices from "v " lines; of each, the
// entries at odd indices are kept.
func ParseMesh(lines []string) (Mesh, error) {
	var texcoords, vertices []Point
	var vtIndex, vIndex int

	for n, line := range lines {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, "vt "):
			if vtIndex%2 == 1 {
				p, err := parsePoint(line)
				if err != nil {
					return Mesh{}, fmt.Errorf("line %d: %w", n+1, err)
				}
				texcoords = append(texcoords, p)
			}
			vtIndex++
		case strings.HasPrefix(line, "v "):
			if vIndex%2 == 1 {
				p, err := parsePoint(line)
				if err != nil {
					return Mesh{}, fmt.Errorf("line %d: %w", n+1, err)
				}
				vertices = append(vertices, p)
			}
			vIndex++
		}
	}

	if len(texcoords) < 2 || len(vertices) < 1 {
		return Mesh{}, fmt.Errorf("mesh has %d texture coordinates and %d vertices", len(texcoords), len(vertices))
	}
	return Mesh{TexCoords: texcoords, Vertices: vertices}, nil
}

func parsePoint(line string) (Point, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Point{}, fmt.Errorf("expected at least 2 coordinates in %q", line)
	}
	x, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid coordinate: %w", err)
	}
	y, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid coordinate: %w", err)
	}
	return Point{X: x, Y: y}, nil
}

// Piece is one rectangle of the source texture and where it goes on the
// reconstructed canvas
type Piece struct {
	Src image.Rectangle
	At  image.Point
}

// Layout computes the pieces and canvas size of a reconstruction of a
// width x height texture.
//
// Texture coordinates map to pixel corners (round(u*W), round((1-v)*H)),
// rounding half to even; consecutive corner pairs span the source
// rectangles. Vertices map to placements (-trunc(x), trunc(y)); the
// maximum y is taken over all placements, then every second placement
// is flipped to (x, maxY-y). Pieces pair up rectangles and placements
// until either runs out.
func (m Mesh) Layout(width, height int) ([]Piece, image.Point) {
	corners := make([]image.Point, len(m.TexCoords))
	for i, c := range m.TexCoords {
		corners[i] = image.Pt(
			int(math.RoundToEven(c.X*float64(width))),
			int(math.RoundToEven((1-c.Y)*float64(height))),
		)
	}

	placements := make([]image.Point, len(m.Vertices))
	maxY := math.MinInt
	for i, v := range m.Vertices {
		placements[i] = image.Pt(-int(v.X), int(v.Y))
		maxY = max(maxY, placements[i].Y)
	}

	var pieces []Piece
	var size image.Point
	for i := 0; 2*i+1 < len(corners) && 2*i < len(placements); i++ {
		src := image.Rectangle{Min: corners[2*i], Max: corners[2*i+1]}.Canon()
		at := image.Pt(placements[2*i].X, maxY-placements[2*i].Y)
		pieces = append(pieces, Piece{Src: src, At: at})

		size.X = max(size.X, src.Dx()+at.X)
		size.Y = max(size.Y, src.Dy()+at.Y)
	}
	return pieces, size
}

// Reconstruct pastes every piece of src onto a transparent canvas
func Reconstruct(src image.Image, mesh Mesh) *image.RGBA {
	bounds := src.Bounds()
	pieces, size := mesh.Layout(bounds.Dx(), bounds.Dy())

	out := image.NewRGBA(image.Rect(0, 0, max(size.X, 0), max(size.Y, 0)))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	for _, p := range pieces {
		srcRect := p.Src.Add(bounds.Min)
		dst := image.Rectangle{Min: p.At, Max: p.At.Add(p.Src.Size())}
		draw.Draw(out, dst, src, srcRect.Min, draw.Src)
	}
	return out
}
