//go:build windows

package hotkey

import (
	"fmt"
	"runtime"
	"time"
	"unsafe"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
)

const (
	WH_KEYBOARD_LL = 13
	WM_QUIT        = 0x0012
	WM_KEYDOWN     = 0x0100
	WM_KEYUP       = 0x0101
	WM_SYSKEYDOWN  = 0x0104
	WM_SYSKEYUP    = 0x0105
	LLKHF_INJECTED = 0x10
)

type kbdllhookstruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt_x    int32
	Pt_y    int32
}

// Listener owns a low-level keyboard hook running on its own locked thread.
type Listener struct {
	tracker  *Tracker
	threadID uint32
	done     chan struct{}
}

// Listen installs a WH_KEYBOARD_LL hook for combo and sends Press/Release
// signals to out. Sends never block the hook; a full channel drops the
// signal. Injected events, including our own typing, are ignored.
func Listen(combo Combo, out chan<- Signal, logger *log.Logger, debug bool) (*Listener, error) {
	if logger == nil {
		logger = log.Default().WithPrefix("hotkey")
	}
	l := &Listener{tracker: NewTracker(combo), done: make(chan struct{})}

	errCh := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(l.done)

		l.threadID = windows.GetCurrentThreadId()

		emit := func(sig Signal, vk uint32) {
			if sig == 0 {
				return
			}
			if debug {
				logger.Debug("signal", "signal", sig, "vk", fmt.Sprintf("0x%X", vk))
			}
			select {
			case out <- sig:
			default:
				logger.Warn("signal dropped, consumer busy", "signal", sig)
			}
		}

		callback := windows.NewCallback(func(nCode, wParam, lParam uintptr) uintptr {
			if int32(nCode) < 0 {
				ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
				return ret
			}
			k := (*kbdllhookstruct)(unsafe.Pointer(lParam))
			if k.flags&LLKHF_INJECTED != 0 {
				ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
				return ret
			}

			var sig Signal
			var swallow bool
			switch uint32(wParam) {
			case WM_KEYDOWN, WM_SYSKEYDOWN:
				sig, swallow = l.tracker.KeyDown(k.vkCode)
			case WM_KEYUP, WM_SYSKEYUP:
				sig, swallow = l.tracker.KeyUp(k.vkCode)
			}
			emit(sig, k.vkCode)
			if swallow {
				return 1
			}
			ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
			return ret
		})

		hook, _, err := procSetWindowsHookExW.Call(uintptr(WH_KEYBOARD_LL), callback, 0, 0)
		if hook == 0 {
			errCh <- fmt.Errorf("SetWindowsHookExW failed: %v", err)
			return
		}
		if debug {
			logger.Debug("low-level hook installed", "hotkey", combo.Spec)
		}
		errCh <- nil

		var m msg
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if int32(ret) == -1 {
				logger.Error("GetMessageW error; exiting low-level hook loop")
				break
			}
			if ret == 0 {
				break
			}
		}

		procUnhookWindowsHookEx.Call(hook)
		if debug {
			logger.Debug("low-level hook uninstalled")
		}
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
		return l, nil
	case <-time.After(2 * time.Second):
		return nil, fmt.Errorf("timeout installing low-level hook")
	}
}

// SetEnabled mirrors the tray toggle.
func (l *Listener) SetEnabled(v bool) {
	l.tracker.SetEnabled(v)
}

// Close removes the hook and waits for its thread to exit.
func (l *Listener) Close() error {
	r, _, err := procPostThreadMessageW.Call(uintptr(l.threadID), WM_QUIT, 0, 0)
	if r == 0 {
		return fmt.Errorf("PostThreadMessageW failed: %v", err)
	}
	<-l.done
	return nil
}
