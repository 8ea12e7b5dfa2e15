package byteflow

// Pipeline wires a chain-buffer source through an AES-CTR transform into
// a fresh chain-buffer sink. The transform state must be non-nil. It is rebuilt wholesale on
// every wiring change; the transform state is extracted first and
// reinstalled into the replacement so the keystream continues where it
// left off.
type Pipeline struct {
	source *ChainBufferReader
	state  *AesCtrState
	sinkW  *ChainBufferWriter
	sinkR  *ChainBufferReader
}

// NewPipeline builds a pipeline pulling from source through the given
// transform state.
func NewPipeline(source *ChainBufferReader, state *AesCtrState) *Pipeline {
	w := NewChainBufferWriter()
	return &Pipeline{
		source: source,
		state:  state,
		sinkW:  w,
		sinkR:  w.ExtractReader(),
	}
}

// Output returns the sink reader that consumers (the binlog reader on
// load, the file on write) pull transformed bytes from.
func (p *Pipeline) Output() *ChainBufferReader {
	return p.sinkR
}

// Wakeup pulls every byte currently visible in the source through the
// transform into the sink. Called after the producer appends.
func (p *Pipeline) Wakeup() {
	p.source.SyncWithWriter()
	for {
		n := p.source.Size()
		if n == 0 {
			break
		}
		if n > chunkSize {
			n = chunkSize
		}
		buf := make([]byte, n)
		p.source.ReadFull(buf)
		p.state.XORKeyStream(buf, buf)
		p.sinkW.Append(buf)
	}
	p.sinkR.SyncWithWriter()
}

// ExtractState releases the transform state for reuse in a rebuilt
// pipeline. The pipeline must not be used afterwards.
func (p *Pipeline) ExtractState() *AesCtrState {
	state := p.state
	p.state = nil
	return state
}
