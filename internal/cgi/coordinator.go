package cgi

import (
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/nabbar/webserv/internal/httpresponse"
	"github.com/nabbar/webserv/internal/reactor"
	"github.com/nabbar/webserv/internal/ringbuffer"
)

// State is the coordinator's lifecycle position.
type State int

const (
	Idle State = iota
	Starting
	WritingInput
	ReadingOutput
	Reaping
	Done
)

const bufferSize = 8 * 1024

// Coordinator forks+execs a CGI interpreter, plumbs its stdin/stdout
// through pipes registered with the reactor, and drives the response
// builder as the child's output arrives. One Coordinator serves exactly
// one request; its owning Connection discards it once State reaches Done.
type Coordinator struct {
	reactor *reactor.Reactor
	cmd     *exec.Cmd

	inW  *os.File
	outR *os.File

	reqBody *ringbuffer.RingBuffer
	resp    *httpresponse.Response
	parser  *outputParser

	responseStarted bool
	state           State

	onDone func(err error)
}

// New prepares (but does not start) a Coordinator.
func New(r *reactor.Reactor) *Coordinator {
	return &Coordinator{reactor: r, parser: newOutputParser(), state: Idle}
}

// Start forks interpreter with the given environment, wiring reqBody as
// its stdin source and streaming its stdout into resp. onDone is invoked
// exactly once, from the reactor's goroutine, once the coordinator
// reaches Done.
func (c *Coordinator) Start(interpreter, script string, env []string, reqBody *ringbuffer.RingBuffer, resp *httpresponse.Response, onDone func(error)) error {
	c.state = Starting
	c.reqBody = reqBody
	c.resp = resp
	c.onDone = onDone

	inR, inW, err := os.Pipe()
	if err != nil {
		return err
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		inR.Close()
		inW.Close()
		return err
	}

	cmd := exec.Command(interpreter, script)
	cmd.Env = env
	cmd.Stdin = inR
	cmd.Stdout = outW

	if err := cmd.Start(); err != nil {
		inR.Close()
		inW.Close()
		outR.Close()
		outW.Close()
		return err
	}

	// Parent closes the ends duped into the child; the child now owns
	// its own copies of them.
	inR.Close()
	outW.Close()

	c.cmd = cmd
	c.inW = inW
	c.outR = outR

	unix.SetNonblock(int(outR.Fd()), true)
	unix.SetNonblock(int(inW.Fd()), true)

	if err := c.reactor.Register(int(outR.Fd()), reactor.Readable, c); err != nil {
		return err
	}
	c.state = ReadingOutput

	if reqBody.Size() == 0 {
		inW.Close()
	} else {
		if err := c.reactor.Register(int(inW.Fd()), reactor.Writable, c); err != nil {
			return err
		}
		c.state = WritingInput
	}

	return nil
}

// OnReadable drains the output pipe, feeding arrived bytes to the CGI
// output parser and, once headers are complete, into the response.
func (c *Coordinator) OnReadable(fd int) {
	buf := make([]byte, bufferSize)
	n, err := c.outR.Read(buf)
	if n > 0 {
		body := c.parser.Feed(buf[:n])
		c.emitIfReady(body)
	}
	if err != nil || n == 0 {
		c.finishOutput()
	}
}

// OnWritable drains the request body ring buffer into the child's stdin,
// closing it once the body is exhausted so the child sees EOF.
func (c *Coordinator) OnWritable(fd int) {
	buf := make([]byte, bufferSize)
	n := c.reqBody.Read(buf)
	if n > 0 {
		if _, err := c.inW.Write(buf[:n]); err != nil {
			c.closeInput()
			return
		}
	}
	if c.reqBody.Size() == 0 {
		c.closeInput()
	}
}

// OnError aborts the child unconditionally: SIGKILL then a blocking reap,
// regardless of how much output has already been produced.
func (c *Coordinator) OnError(fd int) {
	c.abort()
}

func (c *Coordinator) closeInput() {
	if c.inW == nil {
		return
	}
	c.reactor.Deregister(int(c.inW.Fd()))
	c.inW.Close()
	c.inW = nil
}

func (c *Coordinator) emitIfReady(body []byte) {
	if !c.responseStarted && c.parser.HeadersReady() {
		c.resp.StartLine(c.parser.Status())
		for _, h := range c.parser.Headers() {
			c.resp.AddHeader(h.key, h.val)
		}
		c.resp.StreamBody()
		c.resp.EndHeaders()
		c.responseStarted = true
	}
	if c.responseStarted && len(body) > 0 {
		c.resp.FeedChunk(body)
	}
}

// finishOutput handles EOF on the output pipe: deregister, close, reap,
// and synthesize 502 if the child never produced a complete header block.
func (c *Coordinator) finishOutput() {
	c.reactor.Deregister(int(c.outR.Fd()))
	c.outR.Close()
	c.closeInput()

	c.state = Reaping
	waitErr := c.cmd.Wait()

	if !c.parser.HeadersReady() {
		c.resp.StartLine(502)
		c.resp.FeedRaw([]byte("<html><body><h1>502 Bad Gateway</h1></body></html>\n"))
		c.resp.EndHeaders()
	} else if c.responseStarted {
		c.resp.CloseStream()
	}

	c.state = Done
	if c.onDone != nil {
		c.onDone(waitErr)
	}
}

// abort forcibly kills the child and reaps it. It runs only from OnError,
// when the reactor reports an error on either pipe; a client disconnect
// mid-CGI does not reach it, and the child then runs until it exits and
// is reaped in finishOutput.
func (c *Coordinator) abort() {
	if c.cmd != nil && c.cmd.Process != nil {
		c.cmd.Process.Kill()
	}
	if c.outR != nil {
		c.reactor.Deregister(int(c.outR.Fd()))
		c.outR.Close()
	}
	c.closeInput()
	if c.cmd != nil {
		c.cmd.Wait()
	}
	c.state = Done
	if c.onDone != nil {
		c.onDone(nil)
	}
}

// IsDone reports whether the coordinator has reaped its child.
func (c *Coordinator) IsDone() bool { return c.state == Done }
