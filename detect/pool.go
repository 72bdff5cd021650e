package detect

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Pool is a simple pool of OpenCV DNN networks loaded from the same model so
// several frames can be inferenced concurrently
type Pool struct {
	// pool of networks
	nets chan *gocv.Net
	// size of pool
	size  int
	close sync.Once
}

// NewPool loads the ONNX model size times on the given backend and target,
// eg: "default" and "cpu"
func NewPool(size int, modelFile, backend, target string) (*Pool, error) {

	if size < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", size)
	}

	p := &Pool{
		nets: make(chan *gocv.Net, size),
		size: size,
	}

	for i := 0; i < size; i++ {
		net := gocv.ReadNetFromONNX(modelFile)

		if net.Empty() {
			net.Close()
			// close any networks created before the failure
			p.Close()
			return nil, fmt.Errorf("failed to load model %s", modelFile)
		}

		if err := net.SetPreferableBackend(gocv.ParseNetBackend(backend)); err != nil {
			net.Close()
			p.Close()
			return nil, fmt.Errorf("failed to set backend %s: %w", backend, err)
		}

		if err := net.SetPreferableTarget(gocv.ParseNetTarget(target)); err != nil {
			net.Close()
			p.Close()
			return nil, fmt.Errorf("failed to set target %s: %w", target, err)
		}

		p.Return(&net)
	}

	return p, nil
}

// Size returns the number of networks in the pool
func (p *Pool) Size() int {
	return p.size
}

// Get takes a network from the pool, waiting until one is free or the
// context is done
func (p *Pool) Get(ctx context.Context) (*gocv.Net, error) {
	select {
	case net, ok := <-p.nets:
		if !ok {
			return nil, errors.New("pool is closed")
		}
		return net, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Return puts a network back in the pool
func (p *Pool) Return(net *gocv.Net) {
	select {
	case p.nets <- net:
	default:
		// pool is full
		net.Close()
	}
}

// Close the pool and all networks in it.  Networks still checked out must not
// be returned afterwards.
func (p *Pool) Close() {
	p.close.Do(func() {
		close(p.nets)

		for next := range p.nets {
			_ = next.Close()
		}
	})
}
