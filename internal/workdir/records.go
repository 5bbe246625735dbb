package workdir

import (
	"fmt"

	"youdub/internal/fileutil"
	"youdub/internal/services"
)

// Descriptor is the metadata of one source video as reported by the
// resolver. It is persisted verbatim-compatible with yt-dlp's info JSON.
type Descriptor struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Uploader    string   `json:"uploader"`
	UploadDate  string   `json:"upload_date"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	Tags        []string `json:"tags"`
	WebpageURL  string   `json:"webpage_url"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Duration    float64  `json:"duration,omitempty"`
}

// Label returns a human-readable identifier for logs.
func (d *Descriptor) Label() string {
	switch {
	case d == nil:
		return "<nil>"
	case d.Title != "":
		return d.Title
	case d.ID != "":
		return d.ID
	default:
		return d.WebpageURL
	}
}

// Utterance is one time-stamped transcript unit. Translation is filled by the
// translate stage.
type Utterance struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Text        string  `json:"text"`
	Speaker     string  `json:"speaker"`
	Translation string  `json:"translation,omitempty"`
}

// Summary is the per-video summary record that seeds translation context and
// upload metadata.
type Summary struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Summary  string   `json:"summary"`
	Tags     []string `json:"tags"`
	Language string   `json:"language"`
}

// SubmissionResult is one entry of a publishing response.
type SubmissionResult struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	BVID    string `json:"bvid,omitempty"`
}

// SubmissionRecord is the persisted publishing response.
type SubmissionRecord struct {
	Results []SubmissionResult `json:"results"`
}

// Accepted reports whether the first result carries status code 0.
func (r SubmissionRecord) Accepted() bool {
	return len(r.Results) > 0 && r.Results[0].Code == 0
}

// ReadDescriptor loads download.info.json. A missing or title-less
// descriptor is a skip condition.
func ReadDescriptor(folder string) (*Descriptor, error) {
	var d Descriptor
	if err := fileutil.ReadJSON(Path(folder, FileInfo), &d); err != nil {
		if fileutil.IsNotExist(err) {
			return nil, services.Skip("descriptor", "download.info.json missing")
		}
		return nil, services.Wrap(services.ErrValidation, "descriptor", "read", "", err)
	}
	if d.Title == "" {
		return nil, services.Skip("descriptor", "download.info.json has no title")
	}
	return &d, nil
}

// WriteDescriptor persists the descriptor.
func WriteDescriptor(folder string, d *Descriptor) error {
	return fileutil.WriteJSON(Path(folder, FileInfo), d)
}

// ReadTranscript loads transcript.json.
func ReadTranscript(folder string) ([]Utterance, error) {
	return readUtterances(folder, FileTranscript, "transcript")
}

// WriteTranscript persists transcript.json.
func WriteTranscript(folder string, utterances []Utterance) error {
	return fileutil.WriteJSON(Path(folder, FileTranscript), utterances)
}

// ReadTranslation loads the sentence-level translation.json.
func ReadTranslation(folder string) ([]Utterance, error) {
	return readUtterances(folder, FileTranslation, "translation")
}

// WriteTranslation persists translation.json.
func WriteTranslation(folder string, utterances []Utterance) error {
	return fileutil.WriteJSON(Path(folder, FileTranslation), utterances)
}

// ReadCheckpoint loads the per-utterance translations accepted so far. A
// missing checkpoint yields an empty slice.
func ReadCheckpoint(folder string) ([]string, error) {
	var done []string
	if err := fileutil.ReadJSON(Path(folder, FileTranslationRaw), &done); err != nil {
		if fileutil.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return done, nil
}

// WriteCheckpoint persists the per-utterance translations accepted so far.
func WriteCheckpoint(folder string, done []string) error {
	return fileutil.WriteJSON(Path(folder, FileTranslationRaw), done)
}

// ReadSummary loads summary.json.
func ReadSummary(folder string) (Summary, error) {
	var s Summary
	if err := fileutil.ReadJSON(Path(folder, FileSummary), &s); err != nil {
		if fileutil.IsNotExist(err) {
			return s, services.Wrap(services.ErrNotFound, "summary", "read", "summary.json missing", err)
		}
		return s, services.Wrap(services.ErrValidation, "summary", "read", "", err)
	}
	return s, nil
}

// WriteSummary persists summary.json.
func WriteSummary(folder string, s Summary) error {
	return fileutil.WriteJSON(Path(folder, FileSummary), s)
}

// ReadSubmission loads bilibili.json.
func ReadSubmission(folder string) (SubmissionRecord, error) {
	var r SubmissionRecord
	err := fileutil.ReadJSON(Path(folder, FileSubmission), &r)
	return r, err
}

// WriteSubmission persists bilibili.json.
func WriteSubmission(folder string, r SubmissionRecord) error {
	return fileutil.WriteJSON(Path(folder, FileSubmission), r)
}

func readUtterances(folder, name, label string) ([]Utterance, error) {
	var out []Utterance
	if err := fileutil.ReadJSON(Path(folder, name), &out); err != nil {
		if fileutil.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, label, "read", name+" missing", err)
		}
		return nil, services.Wrap(services.ErrValidation, label, "read", "", err)
	}
	for i, u := range out {
		if u.End < u.Start {
			return nil, services.Wrap(services.ErrValidation, label, "read",
				fmt.Sprintf("utterance %d ends before it starts", i), nil)
		}
	}
	return out, nil
}
