package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/knadh/koanf"
	"github.com/sirupsen/logrus"
	"github.com/theckman/yacspin"

	yml "gopkg.in/yaml.v2"

	"github.com/monolab/graybooth/booth"
	"github.com/monolab/graybooth/camera"
	"github.com/monolab/graybooth/generichttp"
	"github.com/monolab/graybooth/photo"
	"github.com/monolab/graybooth/photostore"
	"github.com/monolab/graybooth/server/middleware/locker"
	"github.com/monolab/graybooth/server/middleware/throttle"
	"github.com/monolab/graybooth/transform"
	"github.com/monolab/graybooth/util"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "graybooth.yml"
	k              = koanf.New(".")
)

func root() {
	str := `graybooth takes a photo after a short countdown, turns it upright,
converts it to monochrome and keeps it on display until it is dismissed.
Finished photos are saved to a dated photo library.

Usage:
	graybooth <command>

Commands:
	run
	snap
	convert <file> [file...]
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `graybooth is amenable to configuration via its .yml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.  The command mkconf
generates the configuration file with the default values.  Every key may also
be set from the environment, GRAYBOOTH_ followed by the key path in upper case
with _ between levels, e.g. GRAYBOOTH_COUNTDOWN_STEPS=5.

run serves the booth over HTTP at addr, under endpoint:
	POST /shutter   start the countdown (409 while a photo is in progress)
	POST /finish    dismiss the result on display
	GET  /state, /countdown, /status
	GET  /result?fmt=png&maxdim=800
	GET  /camera/name, /camera/running, /camera/busy, /camera/frame
	GET|POST /library/root, /library/prefix, /library/format, /library/enabled
	GET  /library/latest
	GET|POST /lock  bounce every other request with 423 while locked
	GET  /endpoints

snap takes one photo from the terminal.  convert runs the filter over image
files without a camera and writes <name>.mono.<format> next to each one.

camera.kind "dir" cycles through the image files in camera.addr, which makes a
handy simulator.  camera.kind "http" fetches a frame from the URL camera.addr.

filter.tint is a hex color, #000000 gives neutral gray and #704214 sepia.
filter.policy "passthrough" shows the last good image when a stage fails,
"strict" abandons the photo instead.

library.format is one of png, jpg, gif, tif, bmp, fits.`
	fmt.Println(str)
}

func mkconf() {
	c, err := unmarshal(k)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c, err := unmarshal(k)
	if err != nil {
		log.Fatal(err)
	}
	err = yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("graybooth version %v\n", Version)
}

// rig is everything a booth needs, built from the config
type rig struct {
	c    config
	log  *logrus.Logger
	sess *camera.Session
	lib  *photostore.Library
	pipe transform.Pipeline
}

func setup() rig {
	c, err := unmarshal(k)
	if err != nil {
		log.Fatal(err)
	}
	lg, err := c.logger()
	if err != nil {
		log.Fatal(err)
	}
	pipe, err := c.pipeline()
	if err != nil {
		lg.WithError(err).Fatal("invalid filter configuration")
	}
	lib, err := c.library()
	if err != nil {
		lg.WithError(err).Fatal("invalid library configuration")
	}
	authorizeLibrary(lib, lg)

	sess := camera.NewSession(lg.WithField("component", "camera"))
	dev, err := c.device()
	if err != nil {
		lg.WithError(err).Error("no camera available")
	} else if err := sess.Configure(dev); err == nil {
		sess.Start()
	}
	return rig{c: c, log: lg, sess: sess, lib: lib, pipe: pipe}
}

// authorizeLibrary checks the library root once and tells the operator how
// to fix a refusal.  The booth keeps working without saving.
func authorizeLibrary(lib *photostore.Library, lg logrus.FieldLogger) bool {
	err := lib.Authorize()
	if err == nil {
		return true
	}
	lg.WithError(err).WithField("root", lib.Root()).
		Warn("photos will not be saved, make library.root writable or set GRAYBOOTH_LIBRARY_ROOT")
	return false
}

func (r rig) booth() *booth.Booth {
	return booth.New(r.sess, r.lib, r.pipe, r.c.boothConfig(), r.log.WithField("component", "booth"))
}

// buildMux assembles the route table of the booth, camera, library and lock
// and mounts it at the configured endpoint
func buildMux(c config, b *booth.Booth, sess *camera.Session, lib *photostore.Library) chi.Router {
	w := booth.NewHTTPWrapper(b)
	rt := w.RT()
	rt.Merge(camera.NewHTTPWrapper(sess).RT())
	photostore.NewHTTPWrapper(lib).Inject(w)

	shutter := generichttp.MethodPath{Method: http.MethodPost, Path: "/shutter"}
	th := throttle.New(util.SecsToDuration(c.Shutter.Interval), c.Shutter.Burst)
	rt[shutter] = th.Wrap(rt[shutter])

	lock := locker.New()
	locker.Inject(w, lock)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/endpoints"}] = generichttp.ListEndpoints(rt)

	root := chi.NewRouter()
	root.Use(middleware.Logger)
	r := chi.NewRouter()
	r.Use(lock.Check)
	rt.Bind(r)
	root.Mount(generichttp.SubMuxSanitize(c.Endpoint), r)
	return root
}

func run() {
	rg := setup()
	b := rg.booth()
	mux := buildMux(rg.c, b, rg.sess, rg.lib)
	srv := &http.Server{Addr: rg.c.Addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(sctx)
	}()

	rg.log.WithField("addr", rg.c.Addr).Info("now listening for requests")
	err := srv.ListenAndServe()
	b.Close()
	if err := rg.sess.Stop(); err != nil {
		rg.log.WithError(err).Warn("error closing camera")
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		rg.log.WithError(err).Fatal("server stopped")
	}
}

// saveOutcome is the completion of one library save
type saveOutcome struct {
	path string
	err  error
}

// savedNotifier forwards saves to a library and reports the outcome on a channel
type savedNotifier struct {
	*photostore.Library
	done chan saveOutcome
}

func newSavedNotifier(l *photostore.Library) savedNotifier {
	return savedNotifier{Library: l, done: make(chan saveOutcome, 1)}
}

func (s savedNotifier) SaveAsync(img image.Image, meta photostore.Meta, fn func(string, error)) {
	s.Library.SaveAsync(img, meta, func(path string, err error) {
		fn(path, err)
		s.done <- saveOutcome{path, err}
	})
}

// fallbackSave writes the result into dir as graybooth-<capture id>.png
func fallbackSave(res transform.Result, dir string) (string, error) {
	fn := filepath.Join(dir, "graybooth-"+res.Captured.ID.String()+".png")
	return fn, imaging.Save(res.Output, fn)
}

// shoot presses the shutter and waits for the photo to be displayed and saved.
// It returns where the photo was written.  A failed library save is logged and
// the photo is written to fallbackDir instead; only a failed capture or
// processing step is an error.
func shoot(b *booth.Booth, saved savedNotifier, finished <-chan booth.Event, fallbackDir string, lg logrus.FieldLogger) (string, error) {
	if err := b.Shutter(); err != nil {
		return "", err
	}
	ev := <-finished
	if ev.State != booth.Displaying {
		if ev.Err == nil {
			return "", fmt.Errorf("booth returned to %v", ev.State)
		}
		return "", ev.Err
	}
	res, _ := b.Result()
	for _, f := range res.Failures {
		lg.WithError(f.Err).WithField("stage", f.Stage).Warn("stage skipped")
	}
	out := <-saved.done
	if out.err == nil {
		return out.path, nil
	}
	lg.WithError(out.err).Warn("photo not saved to the library")
	fn, err := fallbackSave(res, fallbackDir)
	if err != nil {
		lg.WithError(err).Warn("photo not written to the working directory either")
		return "", nil
	}
	return fn, nil
}

func snap() {
	rg := setup()
	// the spinner owns the terminal, only warnings get through
	rg.log.SetLevel(logrus.WarnLevel)
	saved := newSavedNotifier(rg.lib)
	b := booth.New(rg.sess, saved, rg.pipe, rg.c.boothConfig(), rg.log)
	defer b.Close()

	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[14],
		Suffix:            " ",
		StopCharacter:     "✓",
		StopMessage:       "done",
		StopFailCharacter: "✗",
		StopFailMessage:   "failed",
	})
	if err != nil {
		log.Fatal(err)
	}

	finished := make(chan booth.Event, 1)
	b.OnEvent(func(ev booth.Event) {
		switch ev.State {
		case booth.CountingDown:
			spinner.Message(fmt.Sprintf("%d", ev.Remaining))
		case booth.Idle, booth.Displaying:
			select {
			case finished <- ev:
			default:
			}
		default:
			spinner.Message(ev.State.String())
		}
	})
	if err := spinner.Start(); err != nil {
		log.Fatal(err)
	}

	// the session comes up on its own goroutine
	deadline := time.Now().Add(5 * time.Second)
	for !rg.sess.Running() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	fn, err := shoot(b, saved, finished, ".", rg.log)
	if err != nil {
		spinner.StopFailMessage(err.Error())
		spinner.StopFail()
		rg.sess.Stop()
		os.Exit(1)
	}
	spinner.Stop()
	if fn != "" {
		fmt.Println(fn)
	}
	rg.sess.Stop()
}

func convert(files []string) {
	c, err := unmarshal(k)
	if err != nil {
		log.Fatal(err)
	}
	lg, err := c.logger()
	if err != nil {
		log.Fatal(err)
	}
	pipe, err := c.pipeline()
	if err != nil {
		lg.WithError(err).Fatal("invalid filter configuration")
	}
	failed := false
	for _, fn := range util.UniqueString(files) {
		out, err := convertFile(pipe, fn, c.Library.Format)
		entry := lg.WithField("file", fn)
		if err != nil {
			entry.WithError(err).Error("error converting")
			failed = true
			continue
		}
		entry.WithField("output", out).Info("converted")
	}
	if failed {
		os.Exit(1)
	}
}

// convertFile runs the pipeline over one file and writes the result beside it
func convertFile(pipe transform.Pipeline, fn, format string) (string, error) {
	raw, err := os.ReadFile(fn)
	if err != nil {
		return "", err
	}
	shot, err := photo.Decode(raw)
	if err != nil {
		return "", err
	}
	res, err := pipe.Run(shot)
	if err != nil {
		return "", err
	}
	out := util.SwapExt(fn, "mono."+format)
	if format == "fits" {
		f, err := os.Create(out)
		if err != nil {
			return "", err
		}
		defer f.Close()
		meta := photostore.Meta{
			ID:          shot.ID,
			Taken:       shot.Taken,
			Camera:      filepath.Base(fn),
			Orientation: shot.Orientation.String(),
			Degraded:    res.Degraded(),
		}
		return out, photostore.WriteFits(f, res.Output, meta)
	}
	return out, imaging.Save(res.Output, out, imaging.JPEGQuality(92))
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	if err := loadConfig(k, ConfigFileName); err != nil {
		log.Fatal(err)
	}
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "snap":
		snap()
		return
	case "convert":
		if len(args) < 3 {
			log.Fatal("convert needs at least one file")
		}
		convert(args[2:])
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
