package metadata

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cadenza/pkg/models"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// Extractor fills gaps in playlist entries that point at local files: a
// missing title or artist comes from the file's tags, a missing fallback
// duration from the audio headers.
type Extractor struct {
	supportedFormats []string
	logger           *logrus.Logger
}

// NewExtractor creates a metadata extractor for the given formats.
func NewExtractor(supportedFormats []string) *Extractor {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Extractor{
		supportedFormats: supportedFormats,
		logger:           logger,
	}
}

// Enrich returns a copy of track with empty fields filled from the media
// file itself. Non-local or unreadable sources are returned unchanged; the
// playlist still works with whatever the entry declared.
func (e *Extractor) Enrich(track models.Track) models.Track {
	if !e.IsAudioFile(track.Source) {
		return track
	}
	if _, err := os.Stat(track.Source); err != nil {
		e.logger.WithFields(logrus.Fields{
			"source": track.Source,
			"error":  err.Error(),
		}).Debug("Source not readable, keeping declared metadata")
		return track
	}

	if track.Duration == 0 {
		duration, err := e.calculateDuration(track.Source)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"source": track.Source,
				"error":  err.Error(),
			}).Warn("Failed to calculate duration")
		} else {
			track.Duration = duration
		}
	}

	if track.Title != "" && track.Artist != "" {
		return track
	}

	file, err := os.Open(track.Source)
	if err != nil {
		return track
	}
	defer file.Close()

	meta, err := tag.ReadFrom(file)
	if err != nil {
		// No usable tags; fall back to the file name.
		if track.Title == "" {
			base := filepath.Base(track.Source)
			track.Title = strings.TrimSuffix(base, filepath.Ext(base))
		}
		if track.Artist == "" {
			track.Artist = "Unknown Artist"
		}
		return track
	}

	if track.Title == "" {
		if title := meta.Title(); title != "" {
			track.Title = title
		} else {
			base := filepath.Base(track.Source)
			track.Title = strings.TrimSuffix(base, filepath.Ext(base))
		}
	}
	if track.Artist == "" {
		if artist := meta.Artist(); artist != "" {
			track.Artist = artist
		} else {
			track.Artist = "Unknown Artist"
		}
	}

	return track
}

// calculateDuration calculates the duration of an audio file in seconds.
func (e *Extractor) calculateDuration(filePath string) (int, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3":
		return e.durationMP3(filePath)
	case ".flac":
		return e.durationFLAC(filePath)
	case ".wav":
		return e.durationWAV(filePath)
	default:
		return 0, fmt.Errorf("unsupported format: %s", filepath.Ext(filePath))
	}
}

// MP3 duration by walking frames; bitrate estimation only if no frame decodes.
func (e *Extractor) durationMP3(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total float64
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return e.estimateFromFileSize(path, 192000) // assume 192 kbps
			}
			break // partial decode; use what we have
		}
		total += fr.Duration().Seconds()
		frames++
	}
	return int(total), nil
}

// FLAC duration via the STREAMINFO metadata block.
func (e *Extractor) durationFLAC(path string) (int, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	si := stream.Info
	if si.NSamples > 0 && si.SampleRate > 0 {
		return int(float64(si.NSamples)/float64(si.SampleRate) + 0.5), nil
	}
	return 0, fmt.Errorf("flac stream missing sample info")
}

// WAV duration from the header and PCM byte count.
func (e *Extractor) durationWAV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return 0, fmt.Errorf("invalid wav header")
	}

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	headerSize := int64(44)
	pcmBytes := st.Size() - headerSize
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	bytesPerFrame := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if bytesPerFrame <= 0 {
		return 0, fmt.Errorf("invalid sample frame size")
	}
	frames := pcmBytes / bytesPerFrame
	return int(float64(frames)/float64(dec.SampleRate) + 0.5), nil
}

// estimateFromFileSize provides last-resort estimation if parsing fails.
func (e *Extractor) estimateFromFileSize(path string, bitrate int) (int, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if bitrate <= 0 {
		return 0, fmt.Errorf("invalid bitrate")
	}
	return int((st.Size() * 8) / int64(bitrate)), nil
}

// IsAudioFile checks if a path has a supported audio extension.
func (e *Extractor) IsAudioFile(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, format := range e.supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}
