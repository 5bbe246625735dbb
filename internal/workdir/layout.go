package workdir

import (
	"path/filepath"
	"strings"

	"youdub/internal/fileutil"
	"youdub/internal/services"
	"youdub/internal/textutil"
)

// Artifact file names, in pipeline order.
const (
	FileVideo             = "download.mp4"
	FileInfo              = "download.info.json"
	FileThumbnail         = "download.png"
	FileAudio             = "audio.wav"
	FileVocals            = "audio_vocals.wav"
	FileInstruments       = "audio_instruments.wav"
	FileTranscript        = "transcript.json"
	FileSummary           = "summary.json"
	FileTranslationRaw    = "translation_raw.json"
	FileTranslation       = "translation.json"
	DirSpeech             = "SPEAKER"
	FileCombinedAudio     = "audio_combined.wav"
	FileSubtitles         = "subtitles.srt"
	FileFinalVideo        = "video.mp4"
	FileMetadata          = "video.txt"
	FileCover             = "video.png"
	FileSubmission        = "bilibili.json"
	unknownUploaderFolder = "Unknown"
)

// FolderFor derives the working folder for a descriptor:
// root/<uploader>/<upload_date> <title>. The result depends only on the
// descriptor, so repeated runs address the same folder. Descriptors without
// a title or upload date cannot be placed and yield a skip.
func FolderFor(root string, d *Descriptor) (string, error) {
	if d == nil {
		return "", services.Skip("resolve", "video descriptor missing")
	}
	if strings.TrimSpace(d.Title) == "" {
		return "", services.Skip("resolve", "video descriptor has no title ("+d.ID+")")
	}
	date := strings.TrimSpace(d.UploadDate)
	if date == "" {
		return "", services.Skip("resolve", "video descriptor has no upload date ("+d.ID+")")
	}
	title := textutil.SanitizeName(d.Title)
	if title == "" {
		title = textutil.SanitizeName(d.ID)
	}
	if title == "" {
		return "", services.Skip("resolve", "video title sanitizes to nothing")
	}
	uploader := textutil.SanitizeName(d.Uploader)
	if uploader == "" {
		uploader = unknownUploaderFolder
	}
	return filepath.Join(root, uploader, date+" "+title), nil
}

// Path joins an artifact name onto folder.
func Path(folder, name string) string {
	return filepath.Join(folder, name)
}

// Has reports whether the named artifact exists and is non-empty.
func Has(folder, name string) bool {
	return fileutil.Exists(Path(folder, name))
}

// Downloaded reports whether the source media and descriptor are present.
func Downloaded(folder string) bool {
	return Has(folder, FileVideo) && Has(folder, FileInfo)
}

// AudioExtracted reports whether the raw audio track has been extracted.
func AudioExtracted(folder string) bool { return Has(folder, FileAudio) }

// Separated reports whether both separated stems exist.
func Separated(folder string) bool {
	return Has(folder, FileVocals) && Has(folder, FileInstruments)
}

// Transcribed reports whether the transcript exists.
func Transcribed(folder string) bool { return Has(folder, FileTranscript) }

// Summarized reports whether the summary record exists.
func Summarized(folder string) bool { return Has(folder, FileSummary) }

// Translated reports whether the sentence-level translation exists.
func Translated(folder string) bool { return Has(folder, FileTranslation) }

// Spoken reports whether the combined dubbed audio exists.
func Spoken(folder string) bool { return Has(folder, FileCombinedAudio) }

// Muxed reports whether the final video exists.
func Muxed(folder string) bool { return Has(folder, FileFinalVideo) }

// MetadataGenerated reports whether the upload description and cover exist.
func MetadataGenerated(folder string) bool {
	return Has(folder, FileMetadata) && Has(folder, FileCover)
}

// Uploaded reports whether a submission record with an accepted result
// exists. Unreadable records count as not uploaded.
func Uploaded(folder string) bool {
	record, err := ReadSubmission(folder)
	if err != nil {
		return false
	}
	return record.Accepted()
}
