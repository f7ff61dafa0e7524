package cli

import (
	"fmt"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Supported display locales.
var (
	English    = language.English
	Indonesian = language.Indonesian
)

// translations holds the Indonesian labels; English keys print as-is.
var translations = [][2]string{
	{"Letter", "Surat"},
	{"Number", "Nomor"},
	{"Classification", "Klasifikasi"},
	{"Subject", "Perihal"},
	{"Sender", "Pengirim"},
	{"Addressee", "Tujuan"},
	{"Letter date", "Tanggal surat"},
	{"Received", "Diterima"},
	{"File", "Berkas"},
	{"Your status", "Status Anda"},
	{"Dispositions", "Disposisi"},
	{"Participants", "Peserta"},
	{"Timeline", "Riwayat"},
	{"Progress", "Kemajuan"},
	{"Note", "Catatan"},
	{"Instructions", "Isi disposisi"},
	{"Signature", "Tanda tangan"},
	{"Recipients", "Penerima"},
	{"You may dispose", "Anda dapat mendisposisikan"},
	{"You may not dispose", "Anda tidak dapat mendisposisikan"},
	{"No letters found.", "Tidak ada surat."},
	{"No activity in %s.", "Tidak ada aktivitas pada %s."},
	{"Activity of %s in %s", "Aktivitas %s pada %s"},
	{"%d of %d participants executed (%d%%)", "%d dari %d peserta telah melaksanakan (%d%%)"},
	{"Disposition %d", "Disposisi %d"},
	{"no_record", "tidak terkait"},
	{"unread", "belum dibaca"},
	{"read", "dibaca"},
	{"executed", "dilaksanakan"},
	{"invalid", "tidak sah"},
	{"%d letters have an invalid disposition tree:", "%d surat memiliki pohon disposisi yang tidak sah:"},
	{"not counted: %s", "tidak dihitung: %s"},
	{"ordinary", "biasa"},
	{"urgent", "segera"},
	{"confidential", "rahasia"},
	{"created", "diterima"},
	{"disposed", "didisposisikan"},
	{"received", "diterima"},
	{"Letter %s registered.", "Surat %s dicatat."},
	{"Disposition %s created at %s.", "Disposisi %s dibuat pada %s."},
	{"Letter %s marked read.", "Surat %s ditandai dibaca."},
	{"Letter %s marked executed.", "Surat %s ditandai dilaksanakan."},
	{"Letter %s imported.", "Surat %s diimpor."},
	{"Letter %s exported to %s.", "Surat %s diekspor ke %s."},
	{"User %s created.", "Pengguna %s dibuat."},
}

var registerOnce sync.Once

func registerTranslations() {
	registerOnce.Do(func() {
		mustRegister(message.SetString)
	})
}

// mustRegister loads the label table through set. The table is static, so a
// rejected entry is a programming error.
func mustRegister(set func(tag language.Tag, key, msg string) error) {
	for _, t := range translations {
		if err := set(Indonesian, t[0], t[1]); err != nil {
			panic(fmt.Sprintf("register label %q for %s: %v", t[0], Indonesian, err))
		}
		if err := set(English, t[0], t[0]); err != nil {
			panic(fmt.Sprintf("register label %q for %s: %v", t[0], English, err))
		}
	}
}

// NewPrinter returns a printer for locale ("en", "id", ...). Unknown or empty
// locales fall back to English.
func NewPrinter(locale string) *message.Printer {
	registerTranslations()
	tag := English
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			matcher := language.NewMatcher([]language.Tag{English, Indonesian})
			_, idx, _ := matcher.Match(parsed)
			tag = []language.Tag{English, Indonesian}[idx]
		}
	}
	return message.NewPrinter(tag)
}
