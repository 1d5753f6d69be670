package point

// offset is an integer pixel displacement from a candidate center.
type offset struct {
	dx, dy int
}

// kernel is a ring of integer offsets {(dx,dy) : innerR^2 < dx^2+dy^2 <= outerR^2}
// precomputed once per outer radius. Offsets are also expressed as linear
// memory strides for a given image row stride, so that, given the address
// of the top-left sample, successive samples are reached by adding one
// int.
type kernel struct {
	outerRadius, innerRadius int
	offsets                  []offset
	strides                  []int // populated by withStride
	strideWidth              int   // the image stride these strides were built for
}

// buildKernel enumerates the ring offsets for outerRadius with
// innerRadius = outerRadius - 2 (a two-pixel-wide ring), clamped to 0.
func buildKernel(outerRadius int) *kernel {
	innerRadius := outerRadius - 2
	if innerRadius < 0 {
		innerRadius = 0
	}

	k := &kernel{outerRadius: outerRadius, innerRadius: innerRadius}
	outer2 := outerRadius * outerRadius
	inner2 := innerRadius * innerRadius

	for dy := -outerRadius; dy <= outerRadius; dy++ {
		for dx := -outerRadius; dx <= outerRadius; dx++ {
			d2 := dx*dx + dy*dy
			if d2 > inner2 && d2 <= outer2 {
				k.offsets = append(k.offsets, offset{dx, dy})
			}
		}
	}
	return k
}

// withStride (re)builds the linear-stride chain for the given image row
// stride; it is a no-op if the kernel is already built for that stride.
func (k *kernel) withStride(stride int) {
	if k.strideWidth == stride && k.strides != nil {
		return
	}
	k.strides = make([]int, len(k.offsets))
	for i, o := range k.offsets {
		k.strides[i] = o.dy*stride + o.dx
	}
	k.strideWidth = stride
}

// kernelPyramid owns the reusable set of ring kernels for a detector,
// rebuilding the stride chains only when the image stride changes.
type kernelPyramid struct {
	kernels      map[int]*kernel
	builtStride  int
}

func newKernelPyramid(radii []int) *kernelPyramid {
	kp := &kernelPyramid{kernels: make(map[int]*kernel, len(radii))}
	for _, r := range radii {
		kp.kernels[r] = buildKernel(r)
	}
	return kp
}

// forStride returns the kernel for the given outer radius, rebuilt for
// the requested image stride if it changed since the last call.
func (kp *kernelPyramid) forStride(radius, stride int) *kernel {
	k := kp.kernels[radius]
	if k == nil {
		k = buildKernel(radius)
		kp.kernels[radius] = k
	}
	k.withStride(stride)
	return k
}
