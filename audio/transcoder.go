package audio

import (
	"context"
	"errors"
	"strings"

	"github.com/asticode/go-astiav"
)

const (
	sampleRate  = 48000
	frameLength = 960 // 20 ms at 48 kHz
)

func init() {
	astiav.SetLogLevel(astiav.LogLevelFatal)
}

// Transcoder decodes any FFmpeg input, resamples to 48 kHz stereo S16,
// applies gain and encodes 20 ms Opus frames.
type Transcoder struct {
	inputCtx               *astiav.FormatContext
	decoderCtx, encoderCtx *astiav.CodecContext
	audioStreamIndex       int
	packet                 *astiav.Packet
	frame                  *astiav.Frame
	resampleCtx            *astiav.SoftwareResampleContext
	resampleFrame          *astiav.Frame
	fifo                   *astiav.AudioFifo
	onFrame                func([]byte)
	gain                   func() float64
	pts                    int64
}

func NewTranscoder() *Transcoder {
	return &Transcoder{
		packet:        astiav.AllocPacket(),
		frame:         astiav.AllocFrame(),
		resampleFrame: astiav.AllocFrame(),
	}
}

// OpenInput opens a file path or URL. Remote inputs reconnect on drops.
func (t *Transcoder) OpenInput(in string) error {
	t.inputCtx = astiav.AllocFormatContext()
	if t.inputCtx == nil {
		return errors.New("failed to alloc format context")
	}

	var opts *astiav.Dictionary
	if strings.HasPrefix(in, "http") {
		opts = astiav.NewDictionary()
		defer opts.Free()
		opts.Set("reconnect", "1", 0)
		opts.Set("reconnect_streamed", "1", 0)
		opts.Set("reconnect_delay_max", "5", 0)
		opts.Set("timeout", "30000000", 0)
	}
	if err := t.inputCtx.OpenInput(in, nil, opts); err != nil {
		return err
	}
	if err := t.inputCtx.FindStreamInfo(nil); err != nil {
		return err
	}

	t.audioStreamIndex = -1
	for _, s := range t.inputCtx.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeAudio {
			t.audioStreamIndex = s.Index()
			break
		}
	}
	if t.audioStreamIndex == -1 {
		return errors.New("no audio stream")
	}
	return nil
}

func (t *Transcoder) SetupDecoder() error {
	p := t.inputCtx.Streams()[t.audioStreamIndex].CodecParameters()
	d := astiav.FindDecoder(p.CodecID())
	if d == nil {
		return errors.New("no decoder")
	}
	t.decoderCtx = astiav.AllocCodecContext(d)
	if err := p.ToCodecContext(t.decoderCtx); err != nil {
		return err
	}
	return t.decoderCtx.Open(d, nil)
}

func (t *Transcoder) SetupEncoder() error {
	e := astiav.FindEncoderByName("libopus")
	if e == nil {
		e = astiav.FindEncoder(astiav.CodecIDOpus)
	}
	if e == nil {
		return errors.New("no opus encoder")
	}
	t.encoderCtx = astiav.AllocCodecContext(e)
	t.encoderCtx.SetBitRate(128000)
	t.encoderCtx.SetSampleRate(sampleRate)
	t.encoderCtx.SetChannelLayout(astiav.ChannelLayoutStereo)
	t.encoderCtx.SetSampleFormat(astiav.SampleFormatS16)
	t.encoderCtx.SetTimeBase(astiav.NewRational(1, sampleRate))

	o := astiav.NewDictionary()
	defer o.Free()
	o.Set("vbr", "on", 0)
	o.Set("application", "audio", 0)
	o.Set("frame_duration", "20", 0)
	if err := t.encoderCtx.Open(e, o); err != nil {
		return err
	}

	t.resampleCtx = astiav.AllocSoftwareResampleContext()
	if t.resampleCtx == nil {
		return errors.New("failed to allocate resampler")
	}
	return nil
}

// Transcode runs until the input ends or ctx is cancelled. on receives
// every encoded frame and a final nil. gain is read once per frame.
func (t *Transcoder) Transcode(ctx context.Context, gain func() float64, on func([]byte)) error {
	defer t.packet.Unref()
	t.onFrame = on
	t.gain = gain
	defer t.onFrame(nil)

	t.fifo = astiav.AllocAudioFifo(t.encoderCtx.SampleFormat(), t.encoderCtx.ChannelLayout().Channels(), frameLength*2)
	defer func() {
		t.fifo.Free()
		t.fifo = nil
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := t.inputCtx.ReadFrame(t.packet); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				break
			}
			return err
		}
		if t.packet.StreamIndex() != t.audioStreamIndex {
			t.packet.Unref()
			continue
		}
		err := t.decoderCtx.SendPacket(t.packet)
		t.packet.Unref()
		if err != nil {
			return err
		}
		if err := t.drainDecoder(false); err != nil {
			return err
		}
	}

	_ = t.decoderCtx.SendPacket(nil)
	if err := t.drainDecoder(true); err != nil {
		return err
	}
	if err := t.writeFifo(1); err != nil {
		return err
	}

	_ = t.encoderCtx.SendFrame(nil)
	t.receivePackets()
	return nil
}

// drainDecoder resamples every decoded frame into the FIFO and encodes
// complete 20 ms frames. Conversion errors are fatal unless flushing.
func (t *Transcoder) drainDecoder(flushing bool) error {
	for {
		if err := t.decoderCtx.ReceiveFrame(t.frame); err != nil {
			return nil
		}

		nb := int(astiav.RescaleQ(int64(t.frame.NbSamples()), astiav.NewRational(1, t.frame.SampleRate()), astiav.NewRational(1, sampleRate)))
		if nb > 0 {
			t.prepareFrame(nb)
			if err := t.resampleCtx.ConvertFrame(t.frame, t.resampleFrame); err != nil {
				t.frame.Unref()
				if flushing {
					return nil
				}
				return err
			}
			if _, err := t.fifo.Write(t.resampleFrame); err != nil {
				t.frame.Unref()
				return err
			}
		}
		t.frame.Unref()

		if err := t.writeFifo(frameLength); err != nil {
			return err
		}
	}
}

// writeFifo encodes FIFO contents in frameLength chunks while at least
// threshold samples remain.
func (t *Transcoder) writeFifo(threshold int) error {
	for t.fifo.Size() >= threshold && t.fifo.Size() > 0 {
		n := min(frameLength, t.fifo.Size())
		t.prepareFrame(n)
		if _, err := t.fifo.Read(t.resampleFrame); err != nil {
			return err
		}

		if t.gain != nil {
			if err := t.scaleFrame(t.resampleFrame, t.gain()); err != nil {
				return err
			}
		}

		t.resampleFrame.SetPts(t.pts)
		t.pts += int64(n)
		if err := t.encoderCtx.SendFrame(t.resampleFrame); err != nil {
			return err
		}
		t.receivePackets()
	}
	return nil
}

func (t *Transcoder) prepareFrame(nbSamples int) {
	t.resampleFrame.Unref()
	t.resampleFrame.SetChannelLayout(t.encoderCtx.ChannelLayout())
	t.resampleFrame.SetSampleFormat(t.encoderCtx.SampleFormat())
	t.resampleFrame.SetSampleRate(t.encoderCtx.SampleRate())
	t.resampleFrame.SetNbSamples(nbSamples)
	_ = t.resampleFrame.AllocBuffer(0)
}

func (t *Transcoder) scaleFrame(f *astiav.Frame, gain float64) error {
	if gain == 1 {
		return nil
	}
	b, err := f.Data().Bytes(1)
	if err != nil {
		return err
	}
	applyGain(b, gain)
	return f.Data().SetBytes(b, 1)
}

func (t *Transcoder) receivePackets() {
	for {
		p := astiav.AllocPacket()
		if t.encoderCtx.ReceivePacket(p) != nil {
			p.Free()
			return
		}
		d := p.Data()
		fd := make([]byte, len(d))
		copy(fd, d)
		p.Free()
		t.onFrame(fd)
	}
}

func (t *Transcoder) Close() {
	if t.resampleCtx != nil {
		t.resampleCtx.Free()
	}
	if t.resampleFrame != nil {
		t.resampleFrame.Free()
	}
	if t.packet != nil {
		t.packet.Free()
	}
	if t.frame != nil {
		t.frame.Free()
	}
	if t.decoderCtx != nil {
		t.decoderCtx.Free()
	}
	if t.encoderCtx != nil {
		t.encoderCtx.Free()
	}
	if t.inputCtx != nil {
		t.inputCtx.CloseInput()
		t.inputCtx.Free()
	}
}
