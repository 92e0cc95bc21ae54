package parcellation

import (
	"fmt"
	"os"

	"github.com/KyungWonPark/nifti"
)

// niftiImage adapts a NIfTI-1 volume to the Image interface.
type niftiImage struct {
	img            *nifti.Nifti1Image
	nx, ny, nz, nt int
}

// LoadNifti reads a NIfTI-1 volume (.nii or .nii.gz) with its data.
func LoadNifti(path string) (Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}

	var img nifti.Nifti1Image
	img.LoadImage(path, true)

	header := img.GetHeader()
	nx, ny, nz, nt := int(header.Dim[1]), int(header.Dim[2]), int(header.Dim[3]), int(header.Dim[4])
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("%s: invalid image dimensions %dx%dx%d", path, nx, ny, nz)
	}
	if nt <= 0 {
		nt = 1
	}
	return &niftiImage{img: &img, nx: nx, ny: ny, nz: nz, nt: nt}, nil
}

func (n *niftiImage) Dims() (int, int, int, int) {
	return n.nx, n.ny, n.nz, n.nt
}

func (n *niftiImage) At(x, y, z, t int) float64 {
	return float64(n.img.GetAt(uint32(x), uint32(y), uint32(z), uint32(t)))
}
