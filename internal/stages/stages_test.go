package stages

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"youdub/internal/media/ffmpeg"
	"youdub/internal/media/ffprobe"
	"youdub/internal/models"
	"youdub/internal/services"
	"youdub/internal/stage"
	"youdub/internal/testsupport"
	"youdub/internal/ttsguard"
	"youdub/internal/workdir"
)

type fakeEncoder struct {
	mu         sync.Mutex
	calls      []string
	tempos     []float64
	placements []ffmpeg.Placement
	muxed      ffmpeg.MuxOptions
	fail       error
}

func (e *fakeEncoder) write(op, out string) error {
	e.mu.Lock()
	e.calls = append(e.calls, op)
	e.mu.Unlock()
	if e.fail != nil {
		return e.fail
	}
	return os.WriteFile(out, []byte(op), 0o644)
}

func (e *fakeEncoder) ExtractAudio(_ context.Context, _, out string) error {
	return e.write("extract", out)
}

func (e *fakeEncoder) Clip(_ context.Context, _, out string, _, _ float64) error {
	return e.write("clip", out)
}

func (e *fakeEncoder) ChangeTempo(_ context.Context, _, out string, tempo float64) error {
	e.tempos = append(e.tempos, tempo)
	return e.write("tempo", out)
}

func (e *fakeEncoder) MixSpeech(_ context.Context, _ string, clips []ffmpeg.Placement, out string) error {
	e.placements = clips
	return e.write("mix", out)
}

func (e *fakeEncoder) Mux(_ context.Context, opts ffmpeg.MuxOptions) error {
	e.muxed = opts
	return e.write("mux", opts.Output)
}

func (e *fakeEncoder) Frame(_ context.Context, _, out string, _ float64) error {
	return e.write("frame", out)
}

func (e *fakeEncoder) count(op string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		if c == op {
			n++
		}
	}
	return n
}

// fakeProber reports every clip as lasting duration seconds.
type fakeProber struct {
	duration float64
	result   ffprobe.Result
}

func (p fakeProber) Inspect(context.Context, string) (ffprobe.Result, error) { return p.result, nil }

func (p fakeProber) Duration(context.Context, string) (float64, error) { return p.duration, nil }

type fakeSynth struct {
	texts []string
}

func (s *fakeSynth) Synthesize(_ context.Context, text, _, _ string) ([]byte, error) {
	s.texts = append(s.texts, text)
	return []byte("RIFF" + text), nil
}

type fakeTranslator struct {
	summaries int
	resumed   []string
}

func (f *fakeTranslator) Summarize(context.Context, *workdir.Descriptor, []workdir.Utterance) (workdir.Summary, error) {
	f.summaries++
	return workdir.Summary{Title: "标题", Author: "作者", Summary: "摘要"}, nil
}

func (f *fakeTranslator) TranslateUtterances(_ context.Context, _ workdir.Summary, transcript []workdir.Utterance, done []string, checkpoint func([]string) error) ([]string, error) {
	f.resumed = append([]string(nil), done...)
	out := append([]string(nil), done...)
	for _, u := range transcript[len(done):] {
		out = append(out, "译"+u.Text+"。")
		if err := checkpoint(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type fakeTranscriber struct {
	utterances []workdir.Utterance
}

func (f fakeTranscriber) Transcribe(context.Context, string, string) ([]workdir.Utterance, error) {
	return f.utterances, nil
}

func writeDescriptor(t *testing.T, folder string) {
	t.Helper()
	d := &workdir.Descriptor{ID: "abc", Title: "Title", Uploader: "Someone", UploadDate: "20240101"}
	if err := workdir.WriteDescriptor(folder, d); err != nil {
		t.Fatal(err)
	}
}

type fakeDownloader struct {
	got *workdir.Descriptor
}

func (f *fakeDownloader) Download(_ context.Context, d *workdir.Descriptor, folder string) error {
	f.got = d
	return os.WriteFile(workdir.Path(folder, workdir.FileVideo), []byte("video"), 0o644)
}

func TestDownloadReadsDescriptor(t *testing.T) {
	folder := t.TempDir()
	dl := &fakeDownloader{}
	s := NewDownload(dl)

	status, err := stage.Execute(context.Background(), s, folder, nil)
	if err != nil || status != stage.StatusNotReady {
		t.Fatalf("folder without descriptor: status=%s err=%v", status, err)
	}

	writeDescriptor(t, folder)
	status, err = stage.Execute(context.Background(), s, folder, nil)
	if err != nil || status != stage.StatusRan {
		t.Fatalf("status=%s err=%v", status, err)
	}
	if dl.got == nil || dl.got.ID != "abc" {
		t.Fatalf("downloader got %+v", dl.got)
	}
	if !workdir.Downloaded(folder) {
		t.Fatal("expected folder to be downloaded")
	}
}

func TestExtractAudioLeavesNoPartialOnFailure(t *testing.T) {
	folder := t.TempDir()
	testsupport.SeedFolder(t, folder, workdir.FileVideo, workdir.FileInfo)

	enc := &fakeEncoder{fail: services.Wrap(services.ErrExternalTool, "ffmpeg", "extract", "boom", nil)}
	s := NewExtractAudio(enc)
	if _, err := stage.Execute(context.Background(), s, folder, nil); err == nil {
		t.Fatal("expected failure")
	}
	if s.Done(folder) {
		t.Fatal("failed extraction must not satisfy Done")
	}
	entries, _ := os.ReadDir(folder)
	for _, e := range entries {
		if strings.Contains(e.Name(), ".partial") {
			t.Fatalf("partial file left behind: %s", e.Name())
		}
	}

	enc.fail = nil
	status, err := stage.Execute(context.Background(), s, folder, nil)
	if err != nil || status != stage.StatusRan {
		t.Fatalf("status=%s err=%v", status, err)
	}
	status, _ = stage.Execute(context.Background(), s, folder, nil)
	if status != stage.StatusAlreadyDone || enc.count("extract") != 2 {
		t.Fatalf("second run should no-op, status=%s calls=%d", status, enc.count("extract"))
	}
}

func TestTranscribeEmptyIsSkip(t *testing.T) {
	folder := t.TempDir()
	testsupport.SeedFolder(t, folder, workdir.FileVocals, workdir.FileInstruments)

	holder := models.NewHolder[Transcriber]("whisperx", func(context.Context) (Transcriber, error) {
		return fakeTranscriber{}, nil
	})
	_, err := stage.Execute(context.Background(), NewTranscribe(holder), folder, nil)
	if !services.IsSkip(err) {
		t.Fatalf("expected skip, got %v", err)
	}
	if _, statErr := os.Stat(workdir.Path(folder, ".whisperx")); !os.IsNotExist(statErr) {
		t.Fatalf("scratch dir not removed: %v", statErr)
	}
}

func TestTranscribeWritesTranscript(t *testing.T) {
	folder := t.TempDir()
	testsupport.SeedFolder(t, folder, workdir.FileVocals, workdir.FileInstruments)
	holder := models.NewHolder[Transcriber]("whisperx", func(context.Context) (Transcriber, error) {
		return fakeTranscriber{utterances: []workdir.Utterance{{Start: 0, End: 1, Text: "Hello.", Speaker: "SPEAKER_00"}}}, nil
	})
	if _, err := stage.Execute(context.Background(), NewTranscribe(holder), folder, nil); err != nil {
		t.Fatal(err)
	}
	got, err := workdir.ReadTranscript(folder)
	if err != nil || len(got) != 1 || got[0].Text != "Hello." {
		t.Fatalf("transcript = %+v, %v", got, err)
	}
}

func TestTranslateResumesFromCheckpoint(t *testing.T) {
	folder := t.TempDir()
	writeDescriptor(t, folder)
	transcript := []workdir.Utterance{
		{Start: 0, End: 1, Text: "One", Speaker: "SPEAKER_00"},
		{Start: 1, End: 2, Text: "Two", Speaker: "SPEAKER_00"},
		{Start: 2, End: 3, Text: "Three", Speaker: "SPEAKER_00"},
	}
	if err := workdir.WriteTranscript(folder, transcript); err != nil {
		t.Fatal(err)
	}
	if err := workdir.WriteCheckpoint(folder, []string{"一。"}); err != nil {
		t.Fatal(err)
	}

	tr := &fakeTranslator{}
	if _, err := stage.Execute(context.Background(), NewTranslate(tr, nil), folder, nil); err != nil {
		t.Fatal(err)
	}
	if len(tr.resumed) != 1 || tr.resumed[0] != "一。" {
		t.Fatalf("translator should resume from checkpoint, got %v", tr.resumed)
	}
	if tr.summaries != 1 || !workdir.Summarized(folder) {
		t.Fatalf("summary not produced: calls=%d", tr.summaries)
	}
	sentences, err := workdir.ReadTranslation(folder)
	if err != nil {
		t.Fatal(err)
	}
	if len(sentences) != 3 || sentences[0].Translation != "一。" || sentences[2].Translation != "译Three。" {
		t.Fatalf("translation = %+v", sentences)
	}
}

func TestTranslateReusesExistingSummary(t *testing.T) {
	folder := t.TempDir()
	writeDescriptor(t, folder)
	if err := workdir.WriteTranscript(folder, []workdir.Utterance{{Start: 0, End: 1, Text: "Hi"}}); err != nil {
		t.Fatal(err)
	}
	if err := workdir.WriteSummary(folder, workdir.Summary{Title: "已有"}); err != nil {
		t.Fatal(err)
	}
	tr := &fakeTranslator{}
	if _, err := stage.Execute(context.Background(), NewTranslate(tr, nil), folder, nil); err != nil {
		t.Fatal(err)
	}
	if tr.summaries != 0 {
		t.Fatalf("summary regenerated %d times", tr.summaries)
	}
}

func TestSpeakFitsAndPlacesSentences(t *testing.T) {
	folder := t.TempDir()
	testsupport.SeedFolder(t, folder, workdir.FileVocals, workdir.FileInstruments)
	sentences := []workdir.Utterance{
		{Start: 0, End: 1, Speaker: "SPEAKER_00", Translation: "“第一句。”"},
		{Start: 1, End: 4, Speaker: "SPEAKER_01", Translation: ""},
		{Start: 1.5, End: 4, Speaker: "SPEAKER_00", Translation: "第三句。"},
	}
	if err := workdir.WriteTranslation(folder, sentences); err != nil {
		t.Fatal(err)
	}

	synth := &fakeSynth{}
	holder := models.NewHolder[Synthesizer]("xtts", func(context.Context) (Synthesizer, error) { return synth, nil })
	enc := &fakeEncoder{}
	s := NewSpeak(holder, enc, fakeProber{duration: 2}, SpeakOptions{Guard: ttsguard.Default(), Language: "zh-cn"})

	if _, err := stage.Execute(context.Background(), s, folder, nil); err != nil {
		t.Fatal(err)
	}
	if len(synth.texts) != 2 || synth.texts[0] != "第一句。" {
		t.Fatalf("synthesized %q", synth.texts)
	}
	if enc.count("clip") != 1 {
		t.Fatalf("expected one reference clip per voiced speaker, got %d", enc.count("clip"))
	}
	// The first clip lasts 2 s in a 1 s slot, so the tempo is capped.
	if len(enc.tempos) != 1 || enc.tempos[0] != DefaultMaxTempo {
		t.Fatalf("tempos = %v", enc.tempos)
	}
	if len(enc.placements) != 2 {
		t.Fatalf("placements = %+v", enc.placements)
	}
	first := filepath.Base(enc.placements[0].Path)
	if !strings.HasPrefix(first, "0000_") || !strings.HasSuffix(first, "_fit.wav") || enc.placements[1].Start != 1.5 {
		t.Fatalf("placements = %+v", enc.placements)
	}
	if !workdir.Spoken(folder) {
		t.Fatal("combined audio missing")
	}
}

func TestSpeakResynthesizesEditedSentences(t *testing.T) {
	folder := t.TempDir()
	testsupport.SeedFolder(t, folder, workdir.FileVocals, workdir.FileInstruments)
	sentences := []workdir.Utterance{
		{Start: 0, End: 2, Speaker: "SPEAKER_00", Translation: "旧的译文。"},
		{Start: 2, End: 4, Speaker: "SPEAKER_00", Translation: "不变的一句。"},
	}
	if err := workdir.WriteTranslation(folder, sentences); err != nil {
		t.Fatal(err)
	}
	synth := &fakeSynth{}
	holder := models.NewHolder[Synthesizer]("xtts", func(context.Context) (Synthesizer, error) { return synth, nil })
	s := NewSpeak(holder, &fakeEncoder{}, fakeProber{duration: 1}, SpeakOptions{})
	if _, err := stage.Execute(context.Background(), s, folder, nil); err != nil {
		t.Fatal(err)
	}

	// Editing the translation and dropping the mix re-runs the stage.
	sentences[0].Translation = "新的译文。"
	if err := workdir.WriteTranslation(folder, sentences); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(workdir.Path(folder, workdir.FileCombinedAudio)); err != nil {
		t.Fatal(err)
	}
	enc := &fakeEncoder{}
	s = NewSpeak(holder, enc, fakeProber{duration: 1}, SpeakOptions{})
	if _, err := stage.Execute(context.Background(), s, folder, nil); err != nil {
		t.Fatal(err)
	}
	want := []string{"旧的译文。", "不变的一句。", "新的译文。"}
	if strings.Join(synth.texts, "|") != strings.Join(want, "|") {
		t.Fatalf("synthesized %q, want %q", synth.texts, want)
	}
	if len(enc.placements) != 2 {
		t.Fatalf("placements = %+v", enc.placements)
	}
	data, err := os.ReadFile(enc.placements[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "RIFF新的译文。" {
		t.Fatalf("first placement holds %q", data)
	}
}

func TestSpeakWithoutSpeechFails(t *testing.T) {
	folder := t.TempDir()
	testsupport.SeedFolder(t, folder, workdir.FileVocals, workdir.FileInstruments)
	if err := workdir.WriteTranslation(folder, []workdir.Utterance{{Start: 0, End: 1, Translation: "“”"}}); err != nil {
		t.Fatal(err)
	}
	holder := models.NewHolder[Synthesizer]("xtts", func(context.Context) (Synthesizer, error) { return &fakeSynth{}, nil })
	s := NewSpeak(holder, &fakeEncoder{}, fakeProber{duration: 1}, SpeakOptions{})
	_, err := stage.Execute(context.Background(), s, folder, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMuxBurnsSubtitlesAtTargetResolution(t *testing.T) {
	folder := t.TempDir()
	writeDescriptor(t, folder)
	testsupport.SeedFolder(t, folder, workdir.FileVideo, workdir.FileCombinedAudio)
	if err := workdir.WriteTranslation(folder, []workdir.Utterance{{Start: 0, End: 2, Translation: "你好，世界。"}}); err != nil {
		t.Fatal(err)
	}
	prober := fakeProber{result: ffprobe.Result{Streams: []ffprobe.Stream{{CodecType: "video", Width: 1280, Height: 720}}}}
	enc := &fakeEncoder{}
	s := NewMux(enc, prober, MuxOptions{SpeedUp: 1.05, FPS: 30, Resolution: "1080p", Subtitles: true, MaxLineChars: 30}, nil)
	if _, err := stage.Execute(context.Background(), s, folder, nil); err != nil {
		t.Fatal(err)
	}
	if enc.muxed.Width != 1920 || enc.muxed.Height != 1080 {
		t.Fatalf("size = %dx%d", enc.muxed.Width, enc.muxed.Height)
	}
	if filepath.Base(enc.muxed.Subtitles) != workdir.FileSubtitles || !workdir.Has(folder, workdir.FileSubtitles) {
		t.Fatalf("subtitles = %q", enc.muxed.Subtitles)
	}
	if !workdir.Muxed(folder) {
		t.Fatal("video.mp4 missing")
	}
}

func TestMetadataCopiesThumbnail(t *testing.T) {
	folder := t.TempDir()
	writeDescriptor(t, folder)
	testsupport.SeedFolder(t, folder, workdir.FileVideo, workdir.FileThumbnail)
	if err := workdir.WriteSummary(folder, workdir.Summary{Title: "标题", Author: "作者", Summary: "摘要"}); err != nil {
		t.Fatal(err)
	}
	enc := &fakeEncoder{}
	if _, err := stage.Execute(context.Background(), NewMetadata(enc), folder, nil); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(workdir.Path(folder, workdir.FileMetadata))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "【中配】标题 - 作者") {
		t.Fatalf("metadata = %q", data)
	}
	if enc.count("frame") != 0 || !workdir.Has(folder, workdir.FileCover) {
		t.Fatal("cover should be copied from the thumbnail")
	}
}

func TestMetadataFallsBackToFrame(t *testing.T) {
	folder := t.TempDir()
	writeDescriptor(t, folder)
	testsupport.SeedFolder(t, folder, workdir.FileVideo)
	if err := workdir.WriteSummary(folder, workdir.Summary{Title: "标题"}); err != nil {
		t.Fatal(err)
	}
	enc := &fakeEncoder{}
	if _, err := stage.Execute(context.Background(), NewMetadata(enc), folder, nil); err != nil {
		t.Fatal(err)
	}
	if enc.count("frame") != 1 {
		t.Fatal("expected a frame grab")
	}
}

type fakePublisher struct{ credErr error }

func (p fakePublisher) CheckCredentials() error { return p.credErr }

func (p fakePublisher) Publish(_ context.Context, folder string) error {
	return workdir.WriteSubmission(folder, workdir.SubmissionRecord{Results: []workdir.SubmissionResult{{Code: 0}}})
}

func TestUploadHealth(t *testing.T) {
	bad := NewUpload(fakePublisher{credErr: errors.New("no cookie")})
	if h := bad.HealthCheck(context.Background()); h.Ready {
		t.Fatal("expected unhealthy")
	}
	folder := t.TempDir()
	testsupport.SeedFolder(t, folder, workdir.FileFinalVideo, workdir.FileMetadata, workdir.FileCover)
	good := NewUpload(fakePublisher{})
	if _, err := stage.Execute(context.Background(), good, folder, nil); err != nil {
		t.Fatal(err)
	}
	if !good.Done(folder) {
		t.Fatal("upload not recorded")
	}
}
